// Package filterexpr lexes and parses the human-friendly filter language
// typed at the prompt, e.g.
//
//	age >= 18 AND status = "active"
//	pk = "user#1" AND begins_with(sk, "order#")
//	NOT attribute_exists(deletedAt) OR tier IN ("gold", "silver")
//
// Precedence from loosest to tightest is OR, AND, NOT, then primaries
// (parenthesized expressions, function calls and operand comparisons).
//
// The resulting Expression tree is consumed by the planner, which picks an
// access path, and by the render package, which turns it into DynamoDB
// expression syntax with #nameN / :valN placeholders.
package filterexpr
