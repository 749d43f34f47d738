package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeySpec(t *testing.T) {
	tests := []struct {
		raw     string
		want    KeyDef
		wantErr string
	}{
		{raw: "pk:S", want: KeyDef{Name: "pk", Kind: KeyKindS}},
		{raw: " id : number ", want: KeyDef{Name: "id", Kind: KeyKindN}},
		{raw: "blob:binary", want: KeyDef{Name: "blob", Kind: KeyKindB}},
		{raw: "PK", wantErr: "expected NAME:TYPE"},
		{raw: "PK:Z", wantErr: "unknown attribute type: Z"},
		{raw: ":S", wantErr: "key name is required"},
		{raw: "PK:", wantErr: "attribute type is required"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseKeySpec(tt.raw)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGSISpec(t *testing.T) {
	t.Run("without sort key", func(t *testing.T) {
		idx, err := ParseGSISpec("GSI1:GSI1PK:S")
		require.NoError(t, err)
		assert.Equal(t, "GSI1", idx.Name)
		assert.False(t, idx.KeyDefinitions.HasSortKey())
		assert.Equal(t, ProjectAll(), idx.Projection)
	})

	t.Run("with projection", func(t *testing.T) {
		idx, err := ParseGSISpec("GSI1:PK:S:all")
		require.NoError(t, err)
		assert.Equal(t, ProjectAll(), idx.Projection)
	})

	t.Run("with sort key and include", func(t *testing.T) {
		idx, err := ParseGSISpec("GSI2:GSI2PK:N:GSI2SK:S:include=owner, status")
		require.NoError(t, err)
		assert.Equal(t, IndexDefinition{
			Name: "GSI2",
			KeyDefinitions: PrimaryKeyDefinition{
				PartitionKey: KeyDef{Name: "GSI2PK", Kind: KeyKindN},
				SortKey:      KeyDef{Name: "GSI2SK", Kind: KeyKindS},
			},
			Projection: ProjectInclude("owner", "status"),
		}, idx)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := ParseGSISpec("GSI1:PK")
		require.ErrorContains(t, err, "expected NAME:PK:PK_TYPE")
	})
}

func TestParseLSISpec(t *testing.T) {
	pk := KeyDef{Name: "pk", Kind: KeyKindS}

	idx, err := ParseLSISpec("LSI1:LSI1SK:S:keys_only", pk)
	require.NoError(t, err)
	assert.Equal(t, ProjectKeysOnly(), idx.Projection)
	assert.Equal(t, pk, idx.KeyDefinitions.PartitionKey)
	assert.Equal(t, "LSI1SK", idx.KeyDefinitions.SortKey.Name)

	_, err = ParseLSISpec("LSI1:SK", pk)
	require.ErrorContains(t, err, "expected NAME:SK:SK_TYPE")
}

func TestParseProjection(t *testing.T) {
	tests := []struct {
		raw     string
		want    Projection
		wantErr string
	}{
		{raw: "ALL", want: ProjectAll()},
		{raw: "keys-only", want: ProjectKeysOnly()},
		{raw: "keys", want: ProjectKeysOnly()},
		{raw: "include=a,b", want: ProjectInclude("a", "b")},
		{raw: "INCLUDE:a", want: ProjectInclude("a")},
		{raw: "include(a, b)", want: ProjectInclude("a", "b")},
		{raw: "include=", wantErr: "include projection requires attributes"},
		{raw: "", wantErr: "projection is empty"},
		{raw: "some", wantErr: "unknown projection"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseProjection(tt.raw)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
