package maf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		alt  string
		want VariantType
	}{
		{"snp", "A", "T", VariantTypeSNP},
		{"del trailing base", "AT", "A", VariantTypeDEL},
		{"ins trailing base", "A", "AT", VariantTypeINS},
		{"onp", "AT", "GC", VariantTypeONP},
		{"del placeholder alt", "TTC", "-", VariantTypeDEL},
		{"ins placeholder ref", "-", "AGG", VariantTypeINS},
		{"single base del", "G", "-", VariantTypeDEL},
		{"single base ins", "-", "G", VariantTypeINS},
		{"both placeholder", "-", "-", VariantTypeUnknown},
		{"both empty", "", "", VariantTypeUnknown},
		{"empty alt behaves like placeholder", "AC", "", VariantTypeDEL},
		{"long onp", "ACGT", "TGCA", VariantTypeONP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ref, tt.alt))
		})
	}
}

func TestIsSNV(t *testing.T) {
	assert.True(t, IsSNV("A", "T"))
	assert.False(t, IsSNV("AT", "A"))
	assert.False(t, IsSNV("-", "G"))
	assert.False(t, IsSNV("G", "-"))
}
