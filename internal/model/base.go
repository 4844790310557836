package model

import "github.com/google/uuid"

// asignarID fills a zero primary key before insert so rows get their id from
// the application rather than from a database default.
func asignarID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
