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

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/ballotbox/indexer"
	"github.com/blinklabs-io/ballotbox/voting"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// statusForError maps a voting error to an HTTP status code
func statusForError(err error) int {
	switch {
	case voting.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, voting.ErrUnauthorized):
		return http.StatusForbidden
	case voting.IsNotFoundError(err):
		return http.StatusNotFound
	case voting.IsStateError(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeVotingError writes the response for a failed voting operation.
// Internal errors are logged and not exposed to the client.
func (a *API) writeVotingError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// identity returns the caller identity, writing a 401 response when it is
// missing
func identity(w http.ResponseWriter, r *http.Request) (voting.Identity, bool) {
	id := r.Header.Get(IdentityHeader)
	if id == "" {
		writeError(
			w,
			http.StatusUnauthorized,
			"missing "+IdentityHeader+" header",
		)
		return "", false
	}
	return voting.Identity(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// handleHealth handles GET /health
func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleCreateProposal handles POST /api/v1/proposals
func (a *API) handleCreateProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var req CreateProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	proposal, err := a.voting.CreateProposal(
		r.Context(),
		caller,
		req.Description,
		req.Options,
		req.Duration,
	)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(
		w,
		http.StatusCreated,
		NewProposalResponse(proposal, a.voting.Clock().Now()),
	)
}

// handleListProposals handles GET /api/v1/proposals
func (a *API) handleListProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := indexer.ProposalFilter{
		Creator: voting.Identity(r.URL.Query().Get("creator")),
		Limit:   params.Count,
		Offset:  params.Offset(),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status, err = voting.ParseStatus(status)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	proposals, err := a.index.ListProposals(r.Context(), filter)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	now := a.voting.Clock().Now()
	ret := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		ret = append(ret, NewProposalResponse(p, now))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleGetProposal handles GET /api/v1/proposals/{id}
func (a *API) handleGetProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	proposal, err := a.voting.GetProposal(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(
		w,
		http.StatusOK,
		NewProposalResponse(proposal, a.voting.Clock().Now()),
	)
}

// handleCloseProposal handles POST /api/v1/proposals/{id}/close
func (a *API) handleCloseProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	proposal, err := a.voting.CloseProposal(
		r.Context(),
		caller,
		r.PathValue("id"),
	)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(
		w,
		http.StatusOK,
		NewProposalResponse(proposal, a.voting.Clock().Now()),
	)
}

// handleDeleteProposal handles DELETE /api/v1/proposals/{id}
func (a *API) handleDeleteProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	reclaimed, err := a.voting.DeleteProposal(r.Context(), caller, id)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteProposalResponse{
		ProposalId:     id,
		ReclaimedBytes: reclaimed,
	})
}

// handleCastVote handles POST /api/v1/proposals/{id}/votes
func (a *API) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var req CastVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OptionIndex == nil {
		writeError(w, http.StatusBadRequest, "missing option_index")
		return
	}
	vote, err := a.voting.CastVote(
		r.Context(),
		caller,
		r.PathValue("id"),
		*req.OptionIndex,
	)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, NewVoteResponse(vote))
}

// handleListVotes handles GET /api/v1/proposals/{id}/votes
func (a *API) handleListVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	votes, err := a.index.ListVotes(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	ret := make([]VoteResponse, 0, len(votes))
	for _, v := range votes {
		ret = append(ret, NewVoteResponse(v))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleGetVote handles GET /api/v1/proposals/{id}/votes/{voter}
func (a *API) handleGetVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	vote, err := a.voting.GetVote(
		r.Context(),
		r.PathValue("id"),
		voting.Identity(r.PathValue("voter")),
	)
	if err != nil {
		a.writeVotingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewVoteResponse(vote))
}
