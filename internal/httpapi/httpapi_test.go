package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mafianight/server/internal/directory"
	"github.com/mafianight/server/internal/game"
	"github.com/mafianight/server/internal/kv"
	"github.com/mafianight/server/internal/room"
)

type testServer struct {
	router *gin.Engine
	engine *game.Engine
	reg    *directory.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := kv.NewMemory()
	states := game.NewStateStore(store)
	logger := zerolog.Nop()
	engine := game.NewEngine(states, logger, game.WithRand(rand.New(rand.NewSource(7))))
	nights := game.NewNightActions(states, logger)
	votes := game.NewVotes(states, logger)
	registry := directory.NewRegistry()
	rooms := room.NewService(store, registry, engine, game.DefaultSettings(), logger)

	r := gin.New()
	api := New(engine, nights, votes, rooms, registry, logger)
	api.Register(r, gin.Accounts{"admin": "secret"})
	return &testServer{router: r, engine: engine, reg: registry}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	return ts.request(t, method, path, body, false)
}

func (ts *testServer) doAdmin(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	return ts.request(t, method, path, body, true)
}

func (ts *testServer) request(t *testing.T, method, path string, body any, admin bool) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.SetBasicAuth("admin", "secret")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(w.Body.Bytes(), &fields)
	return w, fields
}

func str(t *testing.T, fields map[string]json.RawMessage, key string) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(fields[key], &s); err != nil {
		t.Fatalf("field %q: %v", key, err)
	}
	return s
}

func TestFullGameOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	// seat 8 registered players, room auto-starts on the last join
	ids := make([]string, 8)
	for i := range ids {
		w, fields := ts.do(t, http.MethodPost, "/api/players", gin.H{"nickname": fmt.Sprintf("player%d", i+1)})
		if w.Code != http.StatusCreated {
			t.Fatalf("register player: status %d", w.Code)
		}
		ids[i] = str(t, fields, "userId")
	}

	w, fields := ts.do(t, http.MethodPost, "/api/rooms", gin.H{
		"title": "friday game", "hostUserId": ids[0], "requiredPlayers": 8,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create room: status %d, body %s", w.Code, w.Body.String())
	}
	roomID := str(t, fields, "roomId")

	for i, id := range ids {
		w, _ := ts.do(t, http.MethodPost, "/api/rooms/"+roomID+"/join", gin.H{"userId": id})
		if w.Code != http.StatusCreated {
			t.Fatalf("join %d: status %d, body %s", i, w.Code, w.Body.String())
		}
	}

	// public state: starting, roles masked
	w, _ = ts.do(t, http.MethodGet, "/api/game/public-state/"+roomID+"?userId="+ids[0], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public state: status %d", w.Code)
	}
	var public game.PublicState
	if err := json.Unmarshal(w.Body.Bytes(), &public); err != nil {
		t.Fatalf("decode public state: %v", err)
	}
	if public.Phase != game.PhaseStarting || public.DayNumber != 0 {
		t.Fatalf("unexpected initial state: %+v", public)
	}
	for _, p := range public.Players {
		if p.UserID != ids[0] && p.Role != "" {
			t.Fatalf("role leaked for %s", p.UserID)
		}
	}

	// first night
	w, _ = ts.do(t, http.MethodPost, "/api/game/start-night/"+roomID, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start night: status %d, body %s", w.Code, w.Body.String())
	}

	// learn the secret roles directly from the engine to drive the night
	state, err := ts.engine.GameState(ctx, roomID)
	if err != nil {
		t.Fatalf("game state: %v", err)
	}
	byRole := map[game.Role]string{}
	var citizen string
	for _, p := range state.Players {
		if _, ok := byRole[p.Role]; !ok {
			byRole[p.Role] = p.UserID
		}
		if p.Role == game.RoleCitizen && citizen == "" {
			citizen = p.UserID
		}
	}

	// doctor protects the mafia target: nobody should die tonight
	submissions := []struct {
		userID string
		role   game.Role
		target string
	}{
		{byRole[game.RoleMafia], game.RoleMafia, citizen},
		{byRole[game.RoleDoctor], game.RoleDoctor, citizen},
		{byRole[game.RolePolice], game.RolePolice, byRole[game.RoleMafia]},
	}
	for i, sub := range submissions {
		w, fields := ts.do(t, http.MethodPost, "/api/game/night-action/"+roomID, gin.H{
			"userId": sub.userID, "role": string(sub.role), "targetUserId": sub.target,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("night action %d: status %d, body %s", i, w.Code, w.Body.String())
		}
		var complete bool
		_ = json.Unmarshal(fields["allComplete"], &complete)
		if complete != (i == len(submissions)-1) {
			t.Fatalf("night action %d: allComplete=%v", i, complete)
		}
	}

	// the doctor reconsiders: retract, completion drops, then re-pick
	w, _ = ts.do(t, http.MethodDelete, "/api/game/night-action/"+roomID, gin.H{
		"userId": byRole[game.RoleDoctor], "role": string(game.RoleDoctor),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("retract: status %d, body %s", w.Code, w.Body.String())
	}
	w, fields = ts.do(t, http.MethodGet, "/api/game/night-action-status/"+roomID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("night status: status %d", w.Code)
	}
	var complete bool
	_ = json.Unmarshal(fields["allComplete"], &complete)
	if complete {
		t.Fatal("night should be incomplete after the retraction")
	}
	w, _ = ts.do(t, http.MethodPost, "/api/game/night-action/"+roomID, gin.H{
		"userId": byRole[game.RoleDoctor], "role": string(game.RoleDoctor), "targetUserId": citizen,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("resubmit after retract: status %d, body %s", w.Code, w.Body.String())
	}

	// raw record is admin-only
	w, _ = ts.do(t, http.MethodGet, "/api/game/night-actions/"+roomID, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("night-actions without auth: expected 401, got %d", w.Code)
	}
	w, fields = ts.doAdmin(t, http.MethodGet, "/api/game/night-actions/"+roomID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("night-actions: status %d, body %s", w.Code, w.Body.String())
	}
	var record map[string]string
	if err := json.Unmarshal(fields["actions"], &record); err != nil {
		t.Fatalf("decode actions: %v", err)
	}
	if record["mafia_target"] != citizen {
		t.Fatalf("unexpected record: %v", record)
	}

	w, _ = ts.do(t, http.MethodPost, "/api/game/transition-night-result/"+roomID, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("night result: status %d, body %s", w.Code, w.Body.String())
	}
	state, _ = ts.engine.GameState(ctx, roomID)
	if len(state.EliminatedPlayers) != 0 {
		t.Fatalf("protected target died: %v", state.EliminatedPlayers)
	}

	// police can read their investigation result for night 1
	w, fields = ts.do(t, http.MethodGet,
		"/api/game/investigation/"+roomID+"?day=1&userId="+byRole[game.RolePolice]+"&targetUserId="+byRole[game.RoleMafia], nil)
	if w.Code != http.StatusOK {
		t.Fatalf("investigation: status %d, body %s", w.Code, w.Body.String())
	}
	if got := str(t, fields, "role"); got != string(game.RoleMafia) {
		t.Fatalf("expected investigation to reveal mafia, got %q", got)
	}

	// admin dump of the night's investigation results
	w, fields = ts.doAdmin(t, http.MethodGet, "/api/game/investigations/"+roomID+"?day=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("investigations: status %d, body %s", w.Code, w.Body.String())
	}
	var dump map[string]string
	if err := json.Unmarshal(fields["investigations"], &dump); err != nil {
		t.Fatalf("decode investigations: %v", err)
	}
	if dump[byRole[game.RoleMafia]] != string(game.RoleMafia) {
		t.Fatalf("unexpected investigation dump: %v", dump)
	}

	// day, vote: everyone gangs up on the first mafia
	for _, path := range []string{"transition-day", "transition-vote"} {
		w, _ = ts.do(t, http.MethodPost, "/api/game/"+path+"/"+roomID, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("%s: status %d, body %s", path, w.Code, w.Body.String())
		}
	}

	mafia := byRole[game.RoleMafia]
	for _, id := range ids {
		target := mafia
		if id == mafia {
			target = citizen
		}
		w, _ = ts.do(t, http.MethodPost, "/api/game/vote/"+roomID, gin.H{"userId": id, "targetUserId": target})
		if w.Code != http.StatusCreated {
			t.Fatalf("vote by %s: status %d, body %s", id, w.Code, w.Body.String())
		}
	}

	// double vote is a conflict
	w, _ = ts.do(t, http.MethodPost, "/api/game/vote/"+roomID, gin.H{"userId": ids[0], "targetUserId": mafia})
	if w.Code != http.StatusConflict {
		t.Fatalf("revote: expected 409, got %d", w.Code)
	}

	w, _ = ts.do(t, http.MethodPost, "/api/game/transition-day-result/"+roomID, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("day result: status %d, body %s", w.Code, w.Body.String())
	}
	state, _ = ts.engine.GameState(ctx, roomID)
	if state.Phase.Terminal() {
		t.Fatalf("one mafia down should not end the game: %s", state.Phase)
	}
	found := false
	for _, id := range state.EliminatedPlayers {
		if id == mafia {
			found = true
		}
	}
	if !found {
		t.Fatalf("top-voted mafia should be eliminated: %v", state.EliminatedPlayers)
	}
}

func TestCreateRoomRejectsBadPlayerCount(t *testing.T) {
	ts := newTestServer(t)
	_, fields := ts.do(t, http.MethodPost, "/api/players", gin.H{"nickname": "host"})
	hostID := str(t, fields, "userId")

	w, _ := ts.do(t, http.MethodPost, "/api/rooms", gin.H{
		"title": "tiny game", "hostUserId": hostID, "requiredPlayers": 5,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d, body %s", w.Code, w.Body.String())
	}
}

func TestTransitionOnMissingGame(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(t, http.MethodPost, "/api/game/start-night/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
