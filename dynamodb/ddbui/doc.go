// Package ddbui serves a small JSON API over a DynamoDB client, so that
// filters can be planned and run from a browser or curl:
//
//	GET  /api/tables
//	GET  /api/tables/{table}
//	GET  /api/tables/{table}/items?filter=&limit=&cursor=
//	POST /api/tables/{table}/items
//	DELETE /api/tables/{table}/items
//	POST /api/tables/{table}/plan
//	GET  /metrics
//
// Items are exchanged as plain JSON. Cursors are opaque strings that carry
// the LastEvaluatedKey of the previous page.
package ddbui
