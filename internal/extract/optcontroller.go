package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jafarshop/relister/internal/domain"
)

// optionPayload is the option data the site's option controller keeps:
// a set map describing each option axis and a data map keyed by the
// "_"-joined index of each combination.
type optionPayload struct {
	Set    map[string]optionSet `json:"set"`
	OrgSet map[string]optionSet `json:"orgSet"`
	Data   map[string]optionRow `json:"data"`
}

type optionSet struct {
	Name string          `json:"name"`
	Opts json.RawMessage `json:"opts"`
}

type optionRow struct {
	Name     string     `json:"name"`
	DomPrice flexNumber `json:"domPrice"`
	Qty      flexNumber `json:"qty"`
	Hid      flexNumber `json:"hid"`
}

// flexNumber accepts numbers, numeric strings, null and empty strings
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexNumber(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexNumber(n)
	return nil
}

// optionLabels reads opts, which the site emits either as an array or as an
// index-keyed object.
func (s optionSet) optionLabels() map[string]string {
	out := make(map[string]string)
	if len(s.Opts) == 0 {
		return out
	}
	var list []json.RawMessage
	if err := json.Unmarshal(s.Opts, &list); err == nil {
		for i, raw := range list {
			out[strconv.Itoa(i)] = scalarString(raw)
		}
		return out
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(s.Opts, &obj); err == nil {
		for k, raw := range obj {
			out[k] = scalarString(raw)
		}
	}
	return out
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

func decodeOptionPayload(raw []byte) (*optionPayload, error) {
	var p optionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode option payload: %w", err)
	}
	return &p, nil
}

func (p *optionPayload) sets() map[string]optionSet {
	if len(p.Set) > 0 {
		return p.Set
	}
	return p.OrgSet
}

// variants converts the payload to variants. Hidden rows and rows without a
// name are skipped; values are resolved through the set map.
func (p *optionPayload) variants() []domain.Variant {
	sets := p.sets()
	setKeys := numericKeys(sets)
	labels := make([]map[string]string, len(setKeys))
	for i, k := range setKeys {
		labels[i] = sets[k].optionLabels()
	}

	out := make([]domain.Variant, 0, len(p.Data))
	for _, key := range comboKeys(p.Data) {
		row := p.Data[key]
		name := strings.TrimSpace(row.Name)
		if name == "" || int(row.Hid) == 1 {
			continue
		}

		var values []domain.OptionValue
		if len(setKeys) > 0 {
			idx := strings.Split(key, "_")
			for i, setKey := range setKeys {
				if i >= len(idx) {
					break
				}
				optName := strings.TrimSpace(sets[setKey].Name)
				if optName == "" {
					optName = fmt.Sprintf("옵션%d", i+1)
				}
				optIdx := idx[i]
				if n, err := strconv.Atoi(optIdx); err == nil {
					optIdx = strconv.Itoa(n)
				}
				if v := labels[i][optIdx]; v != "" {
					values = append(values, domain.OptionValue{OptionName: optName, OptionValue: v})
				}
			}
		}

		out = append(out, domain.Variant{
			Label:      name,
			PriceDelta: int(row.DomPrice),
			Stock:      intPtr(int(row.Qty)),
			Values:     values,
		})
	}
	return out
}

// numericKeys returns the numeric keys of a set map in ascending order
func numericKeys(m map[string]optionSet) []string {
	type kv struct {
		key string
		n   int
	}
	var keys []kv
	for k := range m {
		if n, err := strconv.Atoi(k); err == nil {
			keys = append(keys, kv{k, n})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].n < keys[j].n })
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.key
	}
	return out
}

// comboKeys orders "i_j" combination keys by their numeric parts
func comboKeys(m map[string]optionRow) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := strings.Split(keys[i], "_"), strings.Split(keys[j], "_")
		for x := 0; x < len(a) && x < len(b); x++ {
			na, errA := strconv.Atoi(a[x])
			nb, errB := strconv.Atoi(b[x])
			if errA == nil && errB == nil {
				if na != nb {
					return na < nb
				}
				continue
			}
			if a[x] != b[x] {
				return a[x] < b[x]
			}
		}
		return len(a) < len(b)
	})
	return keys
}
