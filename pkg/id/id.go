package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand so ULID entropy is unpredictable.
	// ulid.Monotonic keeps ids from the same millisecond increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string (time-sortable run identifier).
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		// Errors are extremely unlikely unless time goes backwards or entropy fails.
		panic(err)
	}
	return id.String()
}

// Time returns the creation time encoded in a ULID string.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}

// Sequence returns a generator of reproducible ULIDs: stamped from start,
// one millisecond apart, with entropy drawn from seed. Two sequences with
// the same arguments yield the same ids.
func Sequence(seed int64, start time.Time) func() string {
	var smu sync.Mutex
	entropy := ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
	ts := start.UTC()
	return func() string {
		smu.Lock()
		defer smu.Unlock()

		id := ulid.MustNew(ulid.Timestamp(ts), entropy)
		ts = ts.Add(time.Millisecond)
		return id.String()
	}
}
