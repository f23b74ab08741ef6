package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thebinaryforest/ga2/pkg/identity"
)

func TestStableIDDeterministic(t *testing.T) {
	a := identity.StableID("ds-key-1", "occ-1")
	b := identity.StableID("ds-key-1", "occ-1")
	assert.Equal(t, a, b)
}

func TestStableIDKnownValue(t *testing.T) {
	// md5("ds-key-1|occ-1") rendered as UUID; pinned so the value can be
	// cross-checked against PostgreSQL's md5(...)::uuid generated column.
	id := identity.StableID("ds-key-1", "occ-1")
	assert.Equal(t, "5b74686b-36ef-b1ac-2b06-52c171349ab4", id.String())
}

func TestStableIDChangesWithOccurrenceID(t *testing.T) {
	a := identity.StableID("ds-key-1", "occ-1")
	b := identity.StableID("ds-key-1", "occ-2")
	assert.NotEqual(t, a, b)
}

func TestStableIDChangesWithDatasetKey(t *testing.T) {
	a := identity.StableID("ds-key-1", "occ-1")
	b := identity.StableID("ds-key-2", "occ-1")
	assert.NotEqual(t, a, b)
}

func TestStableIDIgnoresOtherFields(t *testing.T) {
	// Only the two inputs participate; callers cannot even pass other
	// fields. This pins the contract in a test anyway.
	a := identity.StableID("ds", "occ")
	b := identity.StableID("ds", "occ")
	assert.Equal(t, a, b)
}

func TestValidateDatasetKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"uuid-like key", "4fa7b334-ce0d-4e88-aaae-2e0c138d049e", true},
		{"plain key", "ds-key-1", true},
		{"empty key", "", false},
		{"key with separator", "a|b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.ValidateDatasetKey(tt.key))
		})
	}
}
