package tfrecord

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from the tensorflow.SequenceExample schema.
const (
	fieldContext      = 1
	fieldFeatureLists = 2

	fieldBytesList = 1
	fieldFloatList = 2
	fieldInt64List = 3

	fieldMapKey   = 1
	fieldMapValue = 2
)

type featureKind int

const (
	kindNone featureKind = iota
	kindBytes
	kindFloats
	kindInts
)

// Feature is one typed value list: bytes, float32, or int64.
type Feature struct {
	kind   featureKind
	bytes  [][]byte
	floats []float32
	ints   []int64
}

// Bytes builds a bytes-list feature.
func Bytes(values ...[]byte) Feature {
	return Feature{kind: kindBytes, bytes: values}
}

// Floats builds a float-list feature. An empty slice is a valid, empty list.
func Floats(values []float32) Feature {
	return Feature{kind: kindFloats, floats: values}
}

// Ints builds an int64-list feature. An empty slice is a valid, empty list.
func Ints(values []int64) Feature {
	return Feature{kind: kindInts, ints: values}
}

// BytesValues returns the values of a bytes-list feature.
func (f Feature) BytesValues() [][]byte { return f.bytes }

// FloatValues returns the values of a float-list feature.
func (f Feature) FloatValues() []float32 { return f.floats }

// Int64Values returns the values of an int64-list feature.
func (f Feature) Int64Values() []int64 { return f.ints }

// SequenceExample mirrors the TensorFlow message of the same name: scalar
// context features plus named lists of sequential features.
type SequenceExample struct {
	Context      map[string]Feature
	FeatureLists map[string][]Feature
}

// Marshal serializes the example. Map entries are written in sorted key
// order, so equal examples always serialize to equal bytes.
func (e *SequenceExample) Marshal() []byte {
	var buf []byte
	if e.Context != nil {
		var features []byte
		for _, key := range sortedKeys(e.Context) {
			features = appendMapEntry(features, key, appendFeature(nil, e.Context[key]))
		}
		buf = protowire.AppendTag(buf, fieldContext, protowire.BytesType)
		buf = protowire.AppendBytes(buf, features)
	}
	if e.FeatureLists != nil {
		var lists []byte
		for _, key := range sortedKeys(e.FeatureLists) {
			var list []byte
			for _, f := range e.FeatureLists[key] {
				list = protowire.AppendTag(list, 1, protowire.BytesType)
				list = protowire.AppendBytes(list, appendFeature(nil, f))
			}
			lists = appendMapEntry(lists, key, list)
		}
		buf = protowire.AppendTag(buf, fieldFeatureLists, protowire.BytesType)
		buf = protowire.AppendBytes(buf, lists)
	}
	return buf
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func appendMapEntry(b []byte, key string, value []byte) []byte {
	var entry []byte
	entry = protowire.AppendTag(entry, fieldMapKey, protowire.BytesType)
	entry = protowire.AppendString(entry, key)
	entry = protowire.AppendTag(entry, fieldMapValue, protowire.BytesType)
	entry = protowire.AppendBytes(entry, value)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendBytes(b, entry)
}

// appendFeature encodes a Feature message. An empty list still emits its
// list field so the value type survives serialization.
func appendFeature(b []byte, f Feature) []byte {
	switch f.kind {
	case kindBytes:
		var list []byte
		for _, v := range f.bytes {
			list = protowire.AppendTag(list, 1, protowire.BytesType)
			list = protowire.AppendBytes(list, v)
		}
		b = protowire.AppendTag(b, fieldBytesList, protowire.BytesType)
		b = protowire.AppendBytes(b, list)
	case kindFloats:
		var packed []byte
		for _, v := range f.floats {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		var list []byte
		if len(packed) > 0 {
			list = protowire.AppendTag(list, 1, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
		b = protowire.AppendTag(b, fieldFloatList, protowire.BytesType)
		b = protowire.AppendBytes(b, list)
	case kindInts:
		var packed []byte
		for _, v := range f.ints {
			packed = protowire.AppendVarint(packed, uint64(v))
		}
		var list []byte
		if len(packed) > 0 {
			list = protowire.AppendTag(list, 1, protowire.BytesType)
			list = protowire.AppendBytes(list, packed)
		}
		b = protowire.AppendTag(b, fieldInt64List, protowire.BytesType)
		b = protowire.AppendBytes(b, list)
	}
	return b
}

// Unmarshal parses a serialized SequenceExample. Unknown fields are skipped.
func Unmarshal(data []byte) (*SequenceExample, error) {
	ex := &SequenceExample{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("parse example: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("parse example: %w", protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		sub, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("parse example: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldContext:
			features, err := parseFeatureMap(sub)
			if err != nil {
				return nil, err
			}
			ex.Context = features
		case fieldFeatureLists:
			lists, err := parseFeatureListMap(sub)
			if err != nil {
				return nil, err
			}
			ex.FeatureLists = lists
		}
	}
	return ex, nil
}

func parseFeatureMap(data []byte) (map[string]Feature, error) {
	features := make(map[string]Feature)
	err := eachMapEntry(data, func(key string, value []byte) error {
		f, err := parseFeature(value)
		if err != nil {
			return err
		}
		features[key] = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return features, nil
}

func parseFeatureListMap(data []byte) (map[string][]Feature, error) {
	lists := make(map[string][]Feature)
	err := eachMapEntry(data, func(key string, value []byte) error {
		var list []Feature
		err := eachBytesField(value, 1, func(sub []byte) error {
			f, err := parseFeature(sub)
			if err != nil {
				return err
			}
			list = append(list, f)
			return nil
		})
		if err != nil {
			return err
		}
		lists[key] = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func parseFeature(data []byte) (Feature, error) {
	var f Feature
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return f, fmt.Errorf("parse feature: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			return f, fmt.Errorf("parse feature: unexpected wire type %d", typ)
		}
		sub, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return f, fmt.Errorf("parse feature: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch num {
		case fieldBytesList:
			f.kind = kindBytes
			err := eachBytesField(sub, 1, func(v []byte) error {
				f.bytes = append(f.bytes, v)
				return nil
			})
			if err != nil {
				return f, err
			}
		case fieldFloatList:
			f.kind = kindFloats
			err := eachBytesField(sub, 1, func(packed []byte) error {
				for len(packed) > 0 {
					v, n := protowire.ConsumeFixed32(packed)
					if n < 0 {
						return fmt.Errorf("parse float list: %w", protowire.ParseError(n))
					}
					packed = packed[n:]
					f.floats = append(f.floats, math.Float32frombits(v))
				}
				return nil
			})
			if err != nil {
				return f, err
			}
		case fieldInt64List:
			f.kind = kindInts
			err := eachBytesField(sub, 1, func(packed []byte) error {
				for len(packed) > 0 {
					v, n := protowire.ConsumeVarint(packed)
					if n < 0 {
						return fmt.Errorf("parse int64 list: %w", protowire.ParseError(n))
					}
					packed = packed[n:]
					f.ints = append(f.ints, int64(v))
				}
				return nil
			})
			if err != nil {
				return f, err
			}
		}
	}
	return f, nil
}

// eachMapEntry walks the repeated entry field of a proto map message and
// yields each key/value pair.
func eachMapEntry(data []byte, fn func(key string, value []byte) error) error {
	return eachBytesField(data, 1, func(entry []byte) error {
		var key string
		var value []byte
		for len(entry) > 0 {
			num, typ, n := protowire.ConsumeTag(entry)
			if n < 0 {
				return fmt.Errorf("parse map entry: %w", protowire.ParseError(n))
			}
			entry = entry[n:]
			if typ != protowire.BytesType {
				return fmt.Errorf("parse map entry: unexpected wire type %d", typ)
			}
			sub, n := protowire.ConsumeBytes(entry)
			if n < 0 {
				return fmt.Errorf("parse map entry: %w", protowire.ParseError(n))
			}
			entry = entry[n:]
			switch num {
			case fieldMapKey:
				key = string(sub)
			case fieldMapValue:
				value = sub
			}
		}
		return fn(key, value)
	})
}

// eachBytesField yields every occurrence of a length-delimited field with
// the given number, skipping everything else.
func eachBytesField(data []byte, field protowire.Number, fn func([]byte) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("parse message: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num == field && typ == protowire.BytesType {
			sub, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("parse message: %w", protowire.ParseError(n))
			}
			data = data[n:]
			if err := fn(sub); err != nil {
				return err
			}
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return fmt.Errorf("parse message: %w", protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}
