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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ballotbox/database"
	"github.com/blinklabs-io/ballotbox/event"
	"github.com/blinklabs-io/ballotbox/indexer"
	"github.com/blinklabs-io/ballotbox/voting"
)

const testStartTs = 1_700_000_000

type fakeClock struct {
	mu  sync.Mutex
	now int64
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *fakeClock) Set(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ts
}

type seqIDGenerator struct {
	next atomic.Uint64
}

func (g *seqIDGenerator) NewID(context.Context) (string, error) {
	return fmt.Sprintf("proposal-%d", g.next.Add(1)), nil
}

type testServer struct {
	server  *httptest.Server
	clock   *fakeClock
	indexer *indexer.Indexer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	bus := event.NewEventBus(nil, nil)
	clock := &fakeClock{now: testStartTs}
	v, err := voting.New(
		voting.WithStore(db),
		voting.WithEventBus(bus),
		voting.WithClock(clock),
		voting.WithIDGenerator(&seqIDGenerator{}),
	)
	require.NoError(t, err)
	idx, err := indexer.New(
		indexer.WithDatabase(db),
		indexer.WithEventBus(bus),
		indexer.WithClock(clock),
	)
	require.NoError(t, err)
	require.NoError(t, idx.Start(context.Background()))
	t.Cleanup(idx.Stop)
	a := New(APIConfig{}, v, idx, nil)
	server := httptest.NewServer(a.Handler())
	t.Cleanup(server.Close)
	return &testServer{
		server:  server,
		clock:   clock,
		indexer: idx,
	}
}

// do sends a request and decodes the JSON response into out when it is
// not nil
func (s *testServer) do(
	t *testing.T,
	method string,
	path string,
	caller string,
	body any,
	out any,
) int {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(
		context.Background(),
		method,
		s.server.URL+path,
		reqBody,
	)
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(IdentityHeader, caller)
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) createLunch(t *testing.T) ProposalResponse {
	t.Helper()
	var p ProposalResponse
	status := s.do(t, http.MethodPost, "/api/v1/proposals", "alice",
		CreateProposalRequest{
			Description: "lunch?",
			Options:     []string{"A", "B"},
			Duration:    100,
		},
		&p,
	)
	require.Equal(t, http.StatusCreated, status)
	return p
}

func castBody(idx uint32) CastVoteRequest {
	return CastVoteRequest{OptionIndex: &idx}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var resp HealthResponse
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "", nil, &resp))
	assert.True(t, resp.IsHealthy)
}

func TestGrpcHealth(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.server.Client().Post(
		s.server.URL+"/grpc.health.v1.Health/Check",
		"application/json",
		strings.NewReader(`{"service":"`+HealthServiceName+`"}`),
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "SERVING")
}

func TestProposalFlow(t *testing.T) {
	s := newTestServer(t)
	p := s.createLunch(t)
	assert.Equal(t, "proposal-1", p.Id)
	assert.Equal(t, "alice", p.Creator)
	assert.Equal(t, []uint64{0, 0}, p.VoteCounts)
	assert.Equal(t, string(voting.StatusOpen), p.Status)
	assert.Equal(t, int64(testStartTs+100), p.EndTs)

	var vote VoteResponse
	path := "/api/v1/proposals/" + p.Id
	require.Equal(t, http.StatusCreated,
		s.do(t, http.MethodPost, path+"/votes", "v1", castBody(1), &vote))
	assert.Equal(t, VoteResponse{ProposalId: p.Id, Voter: "v1", OptionIndex: 1}, vote)
	require.Equal(t, http.StatusCreated,
		s.do(t, http.MethodPost, path+"/votes", "v2", castBody(1), nil))

	var errResp ErrorResponse
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, path+"/votes", "v1", castBody(0), &errResp))
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, path+"/votes", "v3", castBody(2), nil))

	var got ProposalResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, "", nil, &got))
	assert.Equal(t, []uint64{0, 2}, got.VoteCounts)
	assert.Equal(t, uint64(2), got.Results.TotalVotes)
	assert.Equal(t, []int{1}, got.Results.Leading)

	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodGet, path+"/votes/v2", "", nil, &vote))
	assert.Equal(t, uint32(1), vote.OptionIndex)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodGet, path+"/votes/v9", "", nil, nil))

	// Closing is only allowed for the creator once the deadline passed
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, path+"/close", "alice", nil, nil))
	s.clock.Set(testStartTs + 100)
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, path+"/votes", "v3", castBody(0), nil))
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, path+"/close", "bob", nil, nil))
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodDelete, path, "alice", nil, nil))
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodPost, path+"/close", "alice", nil, &got))
	assert.False(t, got.IsActive)
	assert.Equal(t, string(voting.StatusClosed), got.Status)

	var deleted DeleteProposalResponse
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodDelete, path, "alice", nil, &deleted))
	assert.Equal(t, p.Id, deleted.ProposalId)
	assert.Positive(t, deleted.ReclaimedBytes)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodGet, path, "", nil, nil))
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(t)
	first := s.createLunch(t)
	second := s.createLunch(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost,
		"/api/v1/proposals/"+first.Id+"/votes", "v2", castBody(0), nil))
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost,
		"/api/v1/proposals/"+first.Id+"/votes", "v1", castBody(1), nil))
	require.NoError(t, s.indexer.Flush())

	var proposals []ProposalResponse
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodGet, "/api/v1/proposals?creator=alice", "", nil, &proposals))
	require.Len(t, proposals, 2)
	// Equal deadlines are ordered by id
	assert.Equal(t, first.Id, proposals[0].Id)
	assert.Equal(t, second.Id, proposals[1].Id)
	assert.Equal(t, []uint64{1, 1}, proposals[0].VoteCounts)

	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodGet, "/api/v1/proposals?count=1&page=2", "", nil, &proposals))
	require.Len(t, proposals, 1)
	assert.Equal(t, second.Id, proposals[0].Id)

	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodGet, "/api/v1/proposals?creator=bob", "", nil, &proposals))
	assert.Empty(t, proposals)
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodGet, "/api/v1/proposals?status=closed", "", nil, &proposals))
	assert.Empty(t, proposals)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodGet, "/api/v1/proposals?status=bogus", "", nil, nil))
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodGet, "/api/v1/proposals?count=x", "", nil, nil))

	var votes []VoteResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet,
		"/api/v1/proposals/"+first.Id+"/votes", "", nil, &votes))
	require.Len(t, votes, 2)
	assert.Equal(t, "v1", votes[0].Voter)
	assert.Equal(t, "v2", votes[1].Voter)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	var errResp ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost,
		"/api/v1/proposals", "", CreateProposalRequest{}, &errResp))
	assert.Contains(t, errResp.Message, IdentityHeader)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost,
		"/api/v1/proposals", "alice", map[string]any{"bogus": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost,
		"/api/v1/proposals", "alice",
		CreateProposalRequest{Options: []string{"A"}, Duration: 10},
		&errResp,
	))
	assert.Contains(t, errResp.Message, voting.ErrNotEnoughOptions.Error())
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost,
		"/api/v1/proposals", "alice",
		CreateProposalRequest{Options: []string{"A", "B"}, Duration: 0},
		nil,
	))
	p := s.createLunch(t)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost,
		"/api/v1/proposals/"+p.Id+"/votes", "v1", CastVoteRequest{}, nil))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost,
		"/api/v1/proposals/missing/votes", "v1", castBody(0), nil))
}

type failingVoting struct {
	VotingService
}

func (failingVoting) GetProposal(context.Context, string) (*voting.Proposal, error) {
	return nil, errors.New("disk on fire")
}

func TestInternalErrorHidden(t *testing.T) {
	a := New(APIConfig{}, failingVoting{}, nil, nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(
		rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/proposals/x", nil),
	)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestStatusForError(t *testing.T) {
	testDefs := []struct {
		err    error
		status int
	}{
		{voting.ErrDescriptionTooLong, http.StatusBadRequest},
		{voting.ErrInvalidOption, http.StatusBadRequest},
		{voting.ErrUnauthorized, http.StatusForbidden},
		{fmt.Errorf("wrapped: %w", voting.ErrProposalNotFound), http.StatusNotFound},
		{voting.ErrVoteNotFound, http.StatusNotFound},
		{voting.ErrDeadlinePassed, http.StatusConflict},
		{voting.ErrVoteAlreadyCast, http.StatusConflict},
		{voting.ErrProposalStillActive, http.StatusConflict},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.status, statusForError(testDef.err), testDef.err.Error())
	}
}

func TestStartStop(t *testing.T) {
	a := New(APIConfig{ListenAddress: "127.0.0.1:0"}, nil, nil, nil)
	require.NoError(t, a.Start(t.Context()))
	a.mu.Lock()
	assert.NotNil(t, a.httpServer)
	a.mu.Unlock()
	require.Error(t, a.Start(t.Context()))

	stopCtx, stopCancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer stopCancel()
	require.NoError(t, a.Stop(stopCtx))
	a.mu.Lock()
	assert.Nil(t, a.httpServer)
	a.mu.Unlock()
	// Stopping twice is harmless
	require.NoError(t, a.Stop(stopCtx))
}

func TestStartPortConflict(t *testing.T) {
	ln, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	a := New(APIConfig{ListenAddress: ln.Addr().String()}, nil, nil, nil)
	require.Error(t, a.Start(t.Context()))
	a.mu.Lock()
	assert.Nil(t, a.httpServer)
	a.mu.Unlock()
}
