// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
