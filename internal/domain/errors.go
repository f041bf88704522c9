package domain

import "errors"

var (
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrTitleCollision    = errors.New("workspace title collides with an existing workspace")
	ErrNoBrowser         = errors.New("browser bridge not connected")
	ErrNoWindow          = errors.New("no normal browser window available")
)
