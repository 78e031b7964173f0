package domain

import "errors"

// ErrNotFound indica que el registro ya no existe (o no es del owner).
// Las capas superiores lo envuelven con su propio sentinel.
var ErrNotFound = errors.New("not found")
