package models

// Kind identifies which parser owns a source file.
type Kind string

const (
	KindSession  Kind = "session"
	KindStats    Kind = "stats"
	KindSettings Kind = "settings"
	KindAgent    Kind = "agent"
	KindCommand  Kind = "command"
	KindSkill    Kind = "skill"
	KindUnknown  Kind = "unknown"
)

// Entity is any indexed unit with derivable summary metadata.
// Implementations are immutable once published to the store: updates
// replace the whole value, never patch fields.
type Entity interface {
	EntityID() string
	EntityKind() Kind
	SourcePath() string
}
