package domain

// PasteID is a validated identifier. Values come from util.ParseID or the
// id generator, never from a bare conversion of client input.
type PasteID string

func (id PasteID) String() string { return string(id) }

// Secret is the per-paste deletion credential.
type Secret string

func (s Secret) String() string { return string(s) }

type Paste struct {
	ID      PasteID
	Content []byte
	Secret  Secret
}

// Authorize decides a delete against the stored secret. ok is false when
// the paste carries no secret at all.
type Authorize func(stored Secret, ok bool) error
