package works

// Variant identifies where the upstream stores the skill descriptor.
type Variant int

const (
	// VariantUnknown means no probe found a skill; queries use VariantNested.
	VariantUnknown Variant = iota
	// VariantNested stores the skill inside the "works" field group.
	VariantNested
	// VariantDirect stores the skill as a top-level node field.
	VariantDirect
	// VariantMeta stores the skill as a "skill" or "_skill" post meta entry.
	VariantMeta
)

// ProbeOrder is the fixed priority in which variants are probed.
var ProbeOrder = []Variant{VariantNested, VariantDirect, VariantMeta}

var metaSkillKeys = []string{"skill", "_skill"}

func (v Variant) String() string {
	switch v {
	case VariantNested:
		return "nested"
	case VariantDirect:
		return "direct"
	case VariantMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// ParseVariant is the inverse of String; unrecognised names map to VariantUnknown.
func ParseVariant(name string) Variant {
	for _, v := range ProbeOrder {
		if v.String() == name {
			return v
		}
	}
	return VariantUnknown
}

// Effective is the variant used to build queries.
func (v Variant) Effective() Variant {
	if v == VariantUnknown {
		return VariantNested
	}
	return v
}

// Detects reports whether item carries a defined skill at this variant's location.
func (v Variant) Detects(item Item) bool {
	switch v {
	case VariantNested:
		return item.Skill.GroupPresent && item.Skill.Nested.Defined
	case VariantDirect:
		return item.Skill.Direct.Defined
	case VariantMeta:
		_, ok := item.MetaValue(metaSkillKeys...)
		return ok
	default:
		return false
	}
}

// Skills extracts the skill values with this variant's accessor. VariantUnknown
// tries the nested then the direct location.
func (v Variant) Skills(item Item) []string {
	switch v {
	case VariantNested:
		return item.Skill.Nested.Values
	case VariantDirect:
		return item.Skill.Direct.Values
	case VariantMeta:
		value, _ := item.MetaValue(metaSkillKeys...)
		return splitMetaSkill(value)
	default:
		if item.Skill.Nested.Defined {
			return item.Skill.Nested.Values
		}
		return item.Skill.Direct.Values
	}
}
