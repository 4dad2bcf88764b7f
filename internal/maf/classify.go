package maf

// VariantType classifies a mutation by the lengths of its alleles.
type VariantType string

const (
	VariantTypeSNP     VariantType = "SNP"
	VariantTypeDEL     VariantType = "DEL"
	VariantTypeINS     VariantType = "INS"
	VariantTypeONP     VariantType = "ONP"
	VariantTypeUnknown VariantType = Placeholder
)

// Classify derives the variant type from the reference and tumor allele
// strings. The placeholder ("-") and the empty string count as zero
// length. Liftover can reshape allele representation, so this is always
// recomputed after liftover; an input-supplied Variant_Type is never
// trusted.
func Classify(ref, alt string) VariantType {
	refLen := alleleLen(ref)
	altLen := alleleLen(alt)

	switch {
	case refLen == 0 && altLen == 0:
		return VariantTypeUnknown
	case refLen > altLen:
		return VariantTypeDEL
	case refLen < altLen:
		return VariantTypeINS
	case refLen == 1:
		return VariantTypeSNP
	default:
		return VariantTypeONP
	}
}

func alleleLen(allele string) int {
	if allele == Placeholder || allele == "" {
		return 0
	}
	return len(allele)
}

// IsSNV reports whether the allele pair describes a single-base
// substitution. Used to split mismatches into SNV and INDEL classes.
func IsSNV(ref, alt string) bool {
	return alleleLen(ref) == 1 && alleleLen(alt) == 1
}
