package x509

import (
	"bytes"
	"sync"

	"github.com/cespare/xxhash"

	"github.com/bwesterb/go-cryptocore/errs"
)

// An in-memory collection of signed objects, deduplicated by their
// encoding and indexed by its hash.  Safe for concurrent use.
type Store struct {
	mux     sync.Mutex
	objects map[uint64][]*Object // objects whose encodings share a hash
	order   []*Object
	key     func(*Object) uint64
}

func NewStore() *Store {
	return &Store{
		objects: make(map[uint64][]*Object),
		key:     StoreKey,
	}
}

// Returns the key under which obj is stored.
func StoreKey(obj *Object) uint64 {
	return xxhash.Sum64(obj.BER())
}

// Adds obj.  Returns false if an object with the same encoding was
// already present.
func (s *Store) Add(obj *Object) bool {
	key := s.key(obj)
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, other := range s.objects[key] {
		if bytes.Equal(other.BER(), obj.BER()) {
			return false
		}
	}
	if len(s.objects[key]) > 0 {
		log("Store: hash collision on %016x", key)
	}
	s.objects[key] = append(s.objects[key], obj)
	s.order = append(s.order, obj)
	return true
}

// Decodes a certificate request from data and adds it.
func (s *Store) Load(data []byte) (*CertificateRequest, error) {
	req, err := ParseCertificateRequest(data)
	if err != nil {
		return nil, err
	}
	if !s.Add(req.Object) {
		log("Store: request for %s already present", req.Subject())
	}
	return req, nil
}

// Returns the object stored under key.  If several objects share the
// key, the first one added is returned.
func (s *Store) Get(key uint64) (*Object, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	bucket := s.objects[key]
	if len(bucket) == 0 {
		return nil, errs.Errorf(errs.NotFound, "Store: no object %016x", key)
	}
	return bucket[0], nil
}

// Returns the stored objects in insertion order.
func (s *Store) All() []*Object {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]*Object(nil), s.order...)
}

func (s *Store) Len() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.order)
}
