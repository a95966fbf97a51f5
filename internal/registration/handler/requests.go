package handler

import (
	"strings"

	domainerrors "regdesk/pkg/domain-errors"
	"regdesk/pkg/validation"
)

// RegisterRequest is the public admission payload, accepted as JSON or as a
// classic HTML form post.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Reason    string `json:"reason"`
}

// Normalize trims whitespace and lowercases the identity fields. Username
// and email are case-insensitive identifiers; names keep their casing.
func (r *RegisterRequest) Normalize() {
	r.Username = strings.ToLower(strings.TrimSpace(r.Username))
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Validate checks the normalized fields.
func (r *RegisterRequest) Validate() error {
	if err := validation.Username(r.Username); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.Email(r.Email); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.NameField("first name", r.FirstName); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if err := validation.NameField("last name", r.LastName); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	return nil
}

// RejectRequest is the optional rejection payload.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}
