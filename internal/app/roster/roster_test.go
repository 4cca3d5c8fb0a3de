package roster

import (
	"francoggm/merchant-status-relay/internal/models"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoster(t *testing.T) {
	r := Default()

	assert.Equal(t, []string{"global", "europe"}, r.Keys())

	global, err := r.Resolve("global")
	require.NoError(t, err)
	assert.Equal(t, "ECCO GLOBAL", global.Label)
	assert.Equal(t, models.TopologyDirect, global.Topology)
	require.Len(t, global.Merchants, 3)
	assert.Equal(t, "ECCO US", global.Merchants[0].DisplayName)
	assert.Empty(t, global.Merchants[0].ParentAccountID)

	europe, err := r.Resolve("europe")
	require.NoError(t, err)
	assert.Equal(t, models.TopologyMCA, europe.Topology)
	for _, m := range europe.Merchants {
		assert.Equal(t, "117117533", m.ParentAccountID)
	}
}

func TestResolveUnknownRegion(t *testing.T) {
	_, err := Default().Resolve("asia")
	require.ErrorIs(t, err, ErrUnknownRegion)

	_, err = Default().Resolve("GLOBAL")
	require.ErrorIs(t, err, ErrUnknownRegion)
}

func TestResolveReturnsCopy(t *testing.T) {
	r := Default()

	region, err := r.Resolve("global")
	require.NoError(t, err)
	region.Merchants[0].DisplayName = "changed"

	again, err := r.Resolve("global")
	require.NoError(t, err)
	assert.Equal(t, "ECCO US", again.Merchants[0].DisplayName)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	content := `
regions:
  - key: nordics
    label: ECCO NORDICS
    topology: mca
    parent_account_id: "900"
    merchants:
      - name: ECCO SE
        account_id: "901"
      - name: ECCO DK
        account_id: "902"
  - key: americas
    label: ECCO AMERICAS
    topology: direct
    merchants:
      - name: ECCO MX
        account_id: "700"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"nordics", "americas"}, r.Keys())

	nordics, err := r.Resolve("nordics")
	require.NoError(t, err)
	assert.Equal(t, []models.MerchantDescriptor{
		{DisplayName: "ECCO SE", AccountID: "901", ParentAccountID: "900"},
		{DisplayName: "ECCO DK", AccountID: "902", ParentAccountID: "900"},
	}, nordics.Merchants)

	regions := r.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, "ECCO AMERICAS", regions[1].Label)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseRejectsInvalidRosters(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no regions", `regions: []`},
		{"mca without parent", `
regions:
  - key: europe
    label: EU
    topology: mca
    merchants: [{name: A, account_id: "1"}]`},
		{"direct with parent", `
regions:
  - key: global
    label: GL
    topology: direct
    parent_account_id: "9"
    merchants: [{name: A, account_id: "1"}]`},
		{"unknown topology", `
regions:
  - key: global
    label: GL
    topology: mesh
    merchants: [{name: A, account_id: "1"}]`},
		{"duplicate name", `
regions:
  - key: global
    label: GL
    topology: direct
    merchants: [{name: A, account_id: "1"}, {name: A, account_id: "2"}]`},
		{"missing account id", `
regions:
  - key: global
    label: GL
    topology: direct
    merchants: [{name: A}]`},
		{"empty region", `
regions:
  - key: global
    label: GL
    topology: direct`},
		{"duplicate region", `
regions:
  - key: global
    label: GL
    topology: direct
    merchants: [{name: A, account_id: "1"}]
  - key: global
    label: GL2
    topology: direct
    merchants: [{name: B, account_id: "2"}]`},
		{"not yaml", `regions: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			require.Error(t, err)
		})
	}
}
