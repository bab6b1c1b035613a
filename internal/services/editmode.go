package services

import "cashplet/internal/core"

// EditMode is the two-state machine guarding record updates: Idle until a
// record is picked for editing, Editing(id) until cancel or a successful
// update. Entering editing does not lock the record; if it is deleted
// elsewhere the update fails and the machine stays in Editing until the
// user cancels.
type EditMode struct {
	editingID string
}

// Start enters Editing for the given record and returns it so the caller
// can load its fields into the form.
func (m *EditMode) Start(r core.Record) core.Record {
	m.editingID = r.ID
	return r
}

// Target returns the active edit target id, if any.
func (m *EditMode) Target() (string, bool) {
	return m.editingID, m.editingID != ""
}

// Cancel leaves Editing and discards the target.
func (m *EditMode) Cancel() {
	m.editingID = ""
}

// Complete leaves Editing after a successful update.
func (m *EditMode) Complete() {
	m.editingID = ""
}
