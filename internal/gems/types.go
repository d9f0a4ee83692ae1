package gems

// GemType identifies the category of achievement.
type GemType string

const (
	// GemMastery is awarded the first time a learner masters a lesson.
	GemMastery GemType = "mastery"
	// GemRecovery is awarded when a learner climbs back over the
	// threshold on a lesson they had mastered before.
	GemRecovery GemType = "recovery"
)

// AllGemTypes returns all gem types in display order.
func AllGemTypes() []GemType {
	return []GemType{GemMastery, GemRecovery}
}

// DisplayName returns a human-readable label for the gem type.
func (t GemType) DisplayName() string {
	switch t {
	case GemMastery:
		return "Mastery"
	case GemRecovery:
		return "Recovery"
	default:
		return string(t)
	}
}
