// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package voting

import "errors"

// Validation errors for new proposals
var (
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidDuration    = errors.New("invalid duration")
	ErrNotEnoughOptions   = errors.New("not enough options")
	ErrTooManyOptions     = errors.New("too many options")
	ErrOptionTooLong      = errors.New("option text too long")
	ErrInvalidIdentity    = errors.New("invalid caller identity")
)

// Timing, authorization and state errors
var (
	ErrDeadlinePassed      = errors.New("voting deadline has passed")
	ErrTooEarlyToClose     = errors.New("too early to close proposal")
	ErrUnauthorized        = errors.New("caller is not the proposal creator")
	ErrProposalClosed      = errors.New("proposal is closed")
	ErrProposalStillActive = errors.New("proposal is still active")
	ErrInvalidOption       = errors.New("invalid option index")
	ErrVoteAlreadyCast     = errors.New("vote already cast")
	ErrProposalNotFound    = errors.New("proposal not found")
	ErrVoteNotFound        = errors.New("vote not found")
)

// Errors returned by a Store implementation
var (
	ErrRecordExists   = errors.New("record already exists")
	ErrRecordNotFound = errors.New("record not found")
)

// IsValidationError reports whether err was caused by malformed input
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrDescriptionTooLong,
		ErrInvalidDuration,
		ErrNotEnoughOptions,
		ErrTooManyOptions,
		ErrOptionTooLong,
		ErrInvalidIdentity,
		ErrInvalidOption,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsStateError reports whether err was caused by the proposal's current state
// or the time of the call
func IsStateError(err error) bool {
	for _, target := range []error{
		ErrDeadlinePassed,
		ErrTooEarlyToClose,
		ErrProposalClosed,
		ErrProposalStillActive,
		ErrVoteAlreadyCast,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFoundError reports whether err refers to a missing proposal or vote
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrProposalNotFound) ||
		errors.Is(err, ErrVoteNotFound)
}
