package rewards

// QualityConfig holds the content-quality thresholds and factors. Everything
// is injectable; DefaultQualityConfig matches the production tuning.
type QualityConfig struct {
	LongLength   int
	LongFactor   float64
	MediumLength int
	MediumFactor float64

	CodeFactor       float64
	LinkFactor       float64
	AttachmentFactor float64

	EmojiSpamCount  int
	EmojiSpamFactor float64

	// MinFactor floors the combined factor so quality alone can never zero
	// out a reward.
	MinFactor float64
}

func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		LongLength:       500,
		LongFactor:       1.5,
		MediumLength:     200,
		MediumFactor:     1.2,
		CodeFactor:       1.4,
		LinkFactor:       1.25,
		AttachmentFactor: 1.1,
		EmojiSpamCount:   5,
		EmojiSpamFactor:  0.5,
		MinFactor:        0.1,
	}
}

// QualityFactor scores message metadata into a multiplicative factor. The
// length buckets are exclusive (the longer bucket wins); all other rules are
// independent multipliers.
func QualityFactor(cfg QualityConfig, meta EventMetadata) float64 {
	factor := 1.0

	switch {
	case meta.ContentLength > cfg.LongLength:
		factor *= cfg.LongFactor
	case meta.ContentLength > cfg.MediumLength:
		factor *= cfg.MediumFactor
	}

	if meta.HasCodeBlock {
		factor *= cfg.CodeFactor
	}
	if meta.HasLink {
		factor *= cfg.LinkFactor
	}
	if meta.HasAttachment {
		factor *= cfg.AttachmentFactor
	}
	if meta.EmojiCount > cfg.EmojiSpamCount {
		factor *= cfg.EmojiSpamFactor
	}

	if factor < cfg.MinFactor {
		factor = cfg.MinFactor
	}
	return factor
}
