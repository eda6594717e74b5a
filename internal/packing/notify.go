package packing

// Level classifies a user-facing notification.
type Level int

const (
	LevelError Level = iota
	LevelSuccess
)

// Notifier is the fire-and-forget toast channel. Every failed mutation
// emits exactly one message; the message set is fixed and localized.
type Notifier interface {
	Notify(level Level, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Level, string) {}

const (
	msgLoadFailed            = "Fehler beim Laden der Listen"
	msgCreateListFailed      = "Fehler beim Erstellen der Liste"
	msgUpdateListFailed      = "Fehler beim Aktualisieren der Liste"
	msgDeleteListFailed      = "Fehler beim Löschen der Liste"
	msgListDeleted           = "Liste gelöscht"
	msgCreateSectionFailed   = "Fehler beim Erstellen des Abschnitts"
	msgUpdateSectionFailed   = "Fehler beim Aktualisieren des Abschnitts"
	msgDeleteSectionFailed   = "Fehler beim Löschen des Abschnitts"
	msgReorderSectionsFailed = "Fehler beim Sortieren der Abschnitte"
	msgCreateItemFailed      = "Fehler beim Hinzufügen des Items"
	msgUpdateItemFailed      = "Fehler beim Aktualisieren des Items"
	msgDeleteItemFailed      = "Fehler beim Löschen des Items"
	msgReorderItemsFailed    = "Fehler beim Sortieren der Items"
	msgMoveItemFailed        = "Fehler beim Verschieben des Items"
	msgResetListFailed       = "Fehler beim Zurücksetzen der Liste"
)
