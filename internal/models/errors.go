package models

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrGameNotFound = errors.New("game not found")
	ErrGameExists   = errors.New("game already exists")

	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")

	// ErrTurnInProgress - в сессии уже обрабатывается ход
	ErrTurnInProgress = errors.New("a turn is already in progress for this game")
)
