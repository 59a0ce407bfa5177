package cache

// JSON protocol for the cache daemon over a Unix domain socket.
// Each connection carries a stream of requests, each answered by one response.

type Request struct {
	Op         string  `json:"op"` // get | set | mset | incr | rpush | lrange | exists | delete | flushall
	Key        string  `json:"key,omitempty"`
	Value      []byte  `json:"value,omitempty"`
	TTLSeconds float64 `json:"ttl_seconds,omitempty"`
	Entries    []Entry `json:"entries,omitempty"`
	Start      int64   `json:"start,omitempty"`
	Stop       int64   `json:"stop,omitempty"`
}

type Response struct {
	OK     bool     `json:"ok"`
	Value  []byte   `json:"value,omitempty"`
	Values [][]byte `json:"values,omitempty"`
	Int    int64    `json:"int,omitempty"`
	Bool   bool     `json:"bool,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// wireErrors maps error strings received from the daemon back to sentinels.
var wireErrors = map[string]error{
	ErrNotFound.Error():   ErrNotFound,
	ErrExpired.Error():    ErrExpired,
	ErrNotInteger.Error(): ErrNotInteger,
	ErrWrongType.Error():  ErrWrongType,
}
