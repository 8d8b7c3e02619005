/*
NAME
  meta.go

DESCRIPTION
  meta.go provides program metadata storage and its encoding as the body of
  a PMT metadata descriptor.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package meta provides functions for adding to, modifying and reading
// program metadata, as well as encoding and decoding functions.
package meta

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// This is the headsize of our metadata string, which is encoded in the data
// body of a PMT descriptor.
const headSize = 4

const (
	majVer = 1
	minVer = 0
)

// Indices of bytes for uint16 metadata length.
const dataLenIdx = 2

// MaxLen is the largest encoding that fits in a descriptor.
const MaxLen = 255

var (
	errKeyAbsent            = errors.New("key does not exist in map")
	errInvalidMeta          = errors.New("invalid metadata given")
	ErrUnexpectedMetaFormat = errors.New("unexpected meta format")
	ErrInvalidKey           = errors.New("key or value contains separator")
	ErrTooLong              = errors.New("encoded metadata too long")
)

// Data holds metadata entries in insertion order. It is not safe for
// concurrent use.
type Data struct {
	data  map[string]string
	order []string
}

// New returns a pointer to a new, empty Data.
func New() *Data {
	return &Data{data: make(map[string]string)}
}

// NewWith creates a Data filled with the given entries. A repeated key
// overwrites the prior value but keeps its position.
func NewWith(data [][2]string) *Data {
	m := New()
	for _, d := range data {
		m.set(d[0], d[1])
	}
	return m
}

// NewFromMap creates a Data from a map, ordering entries by key.
func NewFromMap(data map[string]string) *Data {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := New()
	for _, k := range keys {
		m.set(k, data[k])
	}
	return m
}

// Add adds metadata with key and val. Keys and values may not contain the
// tab or '=' separators.
func (m *Data) Add(key, val string) error {
	if key == "" || strings.ContainsAny(key, "\t=") || strings.ContainsAny(val, "\t=") {
		return fmt.Errorf("%w: %q=%q", ErrInvalidKey, key, val)
	}
	m.set(key, val)
	return nil
}

func (m *Data) set(key, val string) {
	if _, ok := m.data[key]; !ok {
		m.order = append(m.order, key)
	}
	m.data[key] = val
}

// All returns a copy of the map containing the metadata.
func (m *Data) All() map[string]string {
	cpy := make(map[string]string, len(m.data))
	for k, v := range m.data {
		cpy[k] = v
	}
	return cpy
}

// Get returns the metadata for the passed key.
func (m *Data) Get(key string) (val string, ok bool) {
	val, ok = m.data[key]
	return
}

// Delete deletes a metadata entry, returning false if it did not exist.
func (m *Data) Delete(key string) bool {
	if _, ok := m.data[key]; !ok {
		return false
	}
	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (m *Data) Len() int { return len(m.order) }

// Clone returns a deep copy of m.
func (m *Data) Clone() *Data {
	c := &Data{
		data:  m.All(),
		order: append([]string(nil), m.order...),
	}
	return c
}

// Encode encodes the metadata with a header describing the version and
// length of the data, followed by the entries in TSV format.
func (m *Data) Encode() ([]byte, error) {
	entries := make([]string, len(m.order))
	for i, k := range m.order {
		entries[i] = k + "=" + m.data[k]
	}
	body := strings.Join(entries, "\t")
	if headSize+len(body) > MaxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLong, headSize+len(body))
	}

	enc := make([]byte, headSize, headSize+len(body))
	enc[1] = majVer<<4 | minVer
	binary.BigEndian.PutUint16(enc[dataLenIdx:headSize], uint16(len(body)))
	return append(enc, body...), nil
}

// Get returns the value for the given key in d.
func Get(key string, d []byte) (string, error) {
	all, err := GetAll(d)
	if err != nil {
		return "", err
	}
	for _, kv := range all {
		if kv[0] == key {
			return kv[1], nil
		}
	}
	return "", errKeyAbsent
}

// GetAll returns metadata keys and values from d in encoded order.
func GetAll(d []byte) ([][2]string, error) {
	err := checkMeta(d)
	if err != nil {
		return nil, err
	}
	d = d[headSize:]
	if len(d) == 0 {
		return nil, nil
	}
	entries := strings.Split(string(d), "\t")
	all := make([][2]string, len(entries))
	for i, entry := range entries {
		kv := strings.Split(entry, "=")
		if len(kv) != 2 {
			return nil, ErrUnexpectedMetaFormat
		}
		copy(all[i][:], kv)
	}
	return all, nil
}

// GetAllAsMap returns a map containing keys and values from a slice d
// containing metadata.
func GetAllAsMap(d []byte) (map[string]string, error) {
	all, err := GetAll(d)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(all))
	for _, kv := range all {
		m[kv[0]] = kv[1]
	}
	return m, nil
}

// checkMeta checks that a valid metadata header exists in the given data.
func checkMeta(d []byte) error {
	if len(d) < headSize || d[0] != 0 || binary.BigEndian.Uint16(d[dataLenIdx:headSize]) != uint16(len(d[headSize:])) {
		return errInvalidMeta
	}
	return nil
}
