package session

import (
	"hash/fnv"
	"sync"

	"github.com/alebed/magebot/internal/prompt"
)

const shardCount = 32

// Config carries the construction defaults for new sessions.
type Config struct {
	GeneralCapacity int // bounded size of the plain/structured history
	RecipeCapacity  int // bounded size of the guided history
	SubmitWindow    int // most recent turns submitted in plain/structured modes

	DefaultBackend string
	DefaultModel   string
	Temperature    float64
	MaxTokens      int
}

// Store is the per-user session registry. User keys hash onto a fixed set
// of shards so contention stays local to a shard rather than the whole map.
type Store struct {
	cfg    Config
	shards [shardCount]shard
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty registry.
func NewStore(cfg Config) *Store {
	s := &Store{cfg: cfg}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*Session)
	}
	return s
}

// SubmitWindow returns the configured plain/structured submission cap.
func (s *Store) SubmitWindow() int { return s.cfg.SubmitWindow }

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &s.shards[h.Sum32()%shardCount]
}

// Do runs fn with exclusive access to the user's session, creating it with
// defaults on first contact. fn must not retain the *Session past its
// return. Keep provider calls outside Do: the shard stays locked for fn's
// duration.
func (s *Store) Do(userID string, fn func(*Session) error) error {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[userID]
	if !ok {
		sess = s.newSession()
		sh.sessions[userID] = sess
	}
	return fn(sess)
}

func (s *Store) newSession() *Session {
	return &Session{
		Mode:         prompt.ModePlain,
		General:      NewHistory(s.cfg.GeneralCapacity),
		Recipe:       NewHistory(s.cfg.RecipeCapacity),
		Backend:      s.cfg.DefaultBackend,
		Model:        s.cfg.DefaultModel,
		Temperature:  s.cfg.Temperature,
		MaxTokens:    s.cfg.MaxTokens,
		SystemPrompt: true,
	}
}
