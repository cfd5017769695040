package blackboard

// Well-known keys shared between built-in nodes and agent code.
const (
	KeyCellSize      = "CellSize"
	KeyTarget        = "Target"
	KeyFound         = "Found"
	KeyPath          = "Path"
	KeyNewPath       = "NewPath"
	KeySpeed         = "Speed"
	KeyDirection     = "Direction"
	KeyRepeatCount   = "RepeatCount"
	KeySequenceIndex = "SequenceIndex"
	KeySelectorIndex = "SelectorIndex"
	KeySight         = "Sight"
	KeyTargetTags    = "TargetTags"
	KeyTargetTag     = "TargetTag"
	KeyFieldOfView   = "FieldOfView"
)
