package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twmb/flowgate/internal/logging"
	"github.com/twmb/flowgate/pkg/storage"
)

func TestParseLegacyGroup(t *testing.T) {
	cases := []struct {
		name    string
		group   string
		want    storage.GroupID
		isLegacy bool
	}{
		{"no suffix", "workers", storage.GroupID{Name: "workers"}, false},
		{"versioned", "workers-v3", storage.GroupID{Name: "workers", Version: 3}, true},
		{"version zero stays unversioned", "workers-v0", storage.GroupID{Name: "workers-v0"}, false},
		{"non-digit suffix", "workers-vX", storage.GroupID{Name: "workers-vX"}, false},
		{"trailing -v with nothing after", "workers-v", storage.GroupID{Name: "workers-v"}, false},
		{"multiple hyphens", "team-a-workers-v12", storage.GroupID{Name: "team-a-workers", Version: 12}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, legacy := parseLegacyGroup(c.group)
			require.Equal(t, c.want, got)
			require.Equal(t, c.isLegacy, legacy)
		})
	}
}

func TestResolveGroupIDExplicitVersionWins(t *testing.T) {
	got := resolveGroupID(logging.Nop{}, "workers-v3", 7)
	require.Equal(t, storage.GroupID{Name: "workers-v3", Version: 7}, got)
}

func TestAutoOffsetResetTranslate(t *testing.T) {
	require.Equal(t, "earliest", AutoOffsetResetEarliest.translate())
	require.Equal(t, "latest", AutoOffsetResetLatest.translate())
	require.Equal(t, "", AutoOffsetResetUnset.translate())
}
