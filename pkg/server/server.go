// Package server exposes the expression engine over HTTP and WebSocket.
// Clients compile and evaluate expressions remotely; compiled programs are
// cached by source text so repeated evaluation of the same expression does
// not recompile.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"calcgo/pkg/calc"
	"calcgo/pkg/calcerr"
	"calcgo/pkg/opcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Allow all origins (for development - tighten in production)
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server evaluates expressions on behalf of remote clients.
type Server struct {
	secret string
	users  map[string]string // username -> bcrypt hash

	mu    sync.Mutex
	cache map[string]opcode.Instructions

	// Alarm is consulted after every successful evaluation when set.
	Alarm *AlarmNotifier
}

func New(secret string, users map[string]string) *Server {
	return &Server{
		secret: secret,
		users:  users,
		cache:  make(map[string]opcode.Instructions),
	}
}

// Handler returns the route table. /auth issues tokens; /eval and /calc
// require one.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", s.handleAuth)
	mux.HandleFunc("/eval", s.withAuth(s.handleEval))
	mux.HandleFunc("/calc", s.withAuth(s.handleCalcWS))
	return mux
}

// EvalRequest asks for one evaluation. Args maps variable letters A..L to
// their values; VAL supplies the previous result.
type EvalRequest struct {
	Expr string             `json:"expr"`
	Args map[string]float64 `json:"args,omitempty"`
	Val  float64            `json:"val,omitempty"`
}

// EvalResponse reports the outcome. Result is formatted as a string
// because JSON has no encoding for NaN or the infinities.
type EvalResponse struct {
	Result string             `json:"result,omitempty"`
	Args   map[string]float64 `json:"args,omitempty"`
	Inputs string             `json:"inputs,omitempty"`
	Stores string             `json:"stores,omitempty"`
	Error  string             `json:"error,omitempty"`
	Pos    int                `json:"pos,omitempty"`
}

func (s *Server) compileCached(expr string) (opcode.Instructions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post, ok := s.cache[expr]; ok {
		return post, nil
	}
	post, err := calc.Compile(expr)
	if err != nil {
		return nil, err
	}
	s.cache[expr] = post
	return post, nil
}

func (s *Server) evaluate(req *EvalRequest) *EvalResponse {
	if req.Expr == "" {
		return errResponse(calcerr.New(calcerr.NullArg, 0))
	}

	post, err := s.compileCached(req.Expr)
	if err != nil {
		return errResponse(err)
	}

	var args [calc.NArgs]float64
	for name, v := range req.Args {
		slot := slotOf(name)
		if slot < 0 {
			return &EvalResponse{Error: fmt.Sprintf("unknown argument %q", name), Pos: -1}
		}
		args[slot] = v
	}

	inputs, stores, err := calc.ArgUsage(post)
	if err != nil {
		return errResponse(err)
	}

	result, err := calc.Perform(post, &args, req.Val)
	if err != nil {
		return errResponse(err)
	}

	resp := &EvalResponse{
		Result: strconv.FormatFloat(result, 'g', -1, 64),
		Inputs: letters(inputs),
		Stores: letters(stores),
	}
	if stores != 0 {
		resp.Args = make(map[string]float64)
		for slot := 0; slot < calc.NArgs; slot++ {
			if stores&(1<<slot) != 0 {
				resp.Args[opcode.SlotName(byte(slot))] = args[slot]
			}
		}
	}

	if s.Alarm != nil {
		s.Alarm.Check(req.Expr, result)
	}
	return resp
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req EvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	resp := s.evaluate(&req)
	w.Header().Set("Content-Type", "application/json")
	if resp.Error != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	json.NewEncoder(w).Encode(resp)
}

// handleCalcWS runs an evaluation session over one WebSocket connection.
// Each text frame holds one EvalRequest; each reply one EvalResponse.
func (s *Server) handleCalcWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req EvalRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if err := conn.WriteJSON(s.evaluate(&req)); err != nil {
			return
		}
	}
}

type authRequest struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	hash, ok := s.users[req.User]
	if !ok || !VerifyPassword(hash, req.Pass) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := SignToken(map[string]interface{}{"sub": req.User}, s.secret, "24h")
	if err != nil {
		http.Error(w, "token signing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

func errResponse(err error) *EvalResponse {
	resp := &EvalResponse{Error: err.Error(), Pos: -1}
	var ce *calcerr.Error
	if errors.As(err, &ce) {
		resp.Pos = ce.Pos
	}
	return resp
}

// slotOf maps a one-letter variable name to its slot, or -1.
func slotOf(name string) int {
	if len(name) != 1 {
		return -1
	}
	c := name[0] | 0x20
	if c < 'a' || c > 'l' {
		return -1
	}
	return int(c - 'a')
}

// letters renders a usage bitmap as its variable letters, e.g. "AC".
func letters(bits uint16) string {
	var out strings.Builder
	for slot := 0; slot < calc.NArgs; slot++ {
		if bits&(1<<slot) != 0 {
			out.WriteString(opcode.SlotName(byte(slot)))
		}
	}
	return out.String()
}
