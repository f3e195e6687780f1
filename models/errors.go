package models

import "errors"

var (
	// ErrAlreadyUnlocked пара (пользователь, достижение) уже существует
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")
	// ErrUnknownCriteriaType неизвестный тип критерия
	ErrUnknownCriteriaType = errors.New("unknown criteria type")
	// ErrInvalidCriteria критерий с некорректными параметрами
	ErrInvalidCriteria = errors.New("invalid criteria")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)
