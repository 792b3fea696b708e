package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorVersionConflict is returned when an optimistic-concurrency check on a
// balance row fails after all retries.
var ErrorVersionConflict = errors.New("concurrent update detected, please retry")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
