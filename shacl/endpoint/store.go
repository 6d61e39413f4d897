package endpoint

import (
	"bytes"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// triple is a single asserted fact, e.g. (<inst1>, rdf:type, <Class>).
type triple struct {
	Subj, Pred, Obj string
}

// store is a badger-backed triple store that writes SPO, POS and OSP
// index keys for every triple; lookups (scanSPO) read the SPO index
// only. Grounded on the teacher's BadgerStore
// (datalog/storage/badger_store.go): one badger.DB, one Update per bulk
// load.
type store struct {
	db *badger.DB
}

const (
	idxSPO byte = 's'
	idxPOS byte = 'p'
	idxOSP byte = 'o'
)

func newStore(dir string) (*store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error { return s.db.Close() }

// Assert bulk-loads triples into all three indices.
func (s *store) Assert(triples []triple) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, t := range triples {
			for _, key := range indexKeys(t) {
				if err := txn.Set(key, nil); err != nil {
					return fmt.Errorf("writing triple index: %w", err)
				}
			}
		}
		return nil
	})
}

func indexKeys(t triple) [][]byte {
	return [][]byte{
		encodeKey(idxSPO, t.Subj, t.Pred, t.Obj),
		encodeKey(idxPOS, t.Pred, t.Obj, t.Subj),
		encodeKey(idxOSP, t.Obj, t.Subj, t.Pred),
	}
}

func encodeKey(idx byte, a, b, c string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(idx)
	buf.WriteString(a)
	buf.WriteByte(0)
	buf.WriteString(b)
	buf.WriteByte(0)
	buf.WriteString(c)
	return buf.Bytes()
}

// scanSPO visits every triple matching the given subject/predicate/object,
// treating "" as a wildcard for that position. It always prefix-scans
// the SPO index and filters the positions the prefix does not cover in
// Go; the POS and OSP keys Assert writes are never read.
func (s *store) scanSPO(subj, pred, obj string, visit func(triple) error) error {
	prefix := []byte{idxSPO}
	if subj != "" {
		prefix = append(prefix, []byte(subj)...)
		prefix = append(prefix, 0)
		if pred != "" {
			prefix = append(prefix, []byte(pred)...)
			prefix = append(prefix, 0)
		}
	}
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			t, ok := decodeSPOKey(it.Item().KeyCopy(nil))
			if !ok {
				continue
			}
			if pred != "" && t.Pred != pred {
				continue
			}
			if obj != "" && t.Obj != obj {
				continue
			}
			if err := visit(t); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeSPOKey(key []byte) (triple, bool) {
	if len(key) == 0 || key[0] != idxSPO {
		return triple{}, false
	}
	parts := bytes.SplitN(key[1:], []byte{0}, 3)
	if len(parts) != 3 {
		return triple{}, false
	}
	return triple{Subj: string(parts[0]), Pred: string(parts[1]), Obj: string(parts[2])}, true
}
