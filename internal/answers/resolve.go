package answers

// Answer keys with derived-invariant behavior.
const (
	KeyNetwork  = "network"
	KeyWifiSsid = "wifiSsid"
	KeyWifiKey  = "wifiKey"

	// NetworkWifi is the value network is forced to when wifi credentials are
	// answered but the network type itself is not.
	NetworkWifi = "wifi"
)

// Resolved is the final answer set for one provisioning run. Keys are always
// a subset of the question names it was resolved against, plus any derived
// fields merged in afterwards.
type Resolved struct {
	Values map[string]any
}

// Resolve scans sources in precedence order (highest first) for each question
// name; the first source supplying a non-nil value wins. Names no source
// answers are simply absent from the result, left for the interactive layer.
//
// Post-pass: if network is unanswered but a wifi SSID or key is answered, the
// network type is set to wifi. Resolution is idempotent and never fails.
func Resolve(names []string, sources []Source) Resolved {
	values := make(map[string]any, len(names))
	for _, name := range names {
		for _, src := range sources {
			if v, ok := src.Lookup(name); ok {
				values[name] = v
				break
			}
		}
	}

	if _, ok := values[KeyNetwork]; !ok {
		_, ssid := values[KeyWifiSsid]
		_, key := values[KeyWifiKey]
		if ssid || key {
			values[KeyNetwork] = NetworkWifi
		}
	}

	return Resolved{Values: values}
}

// Answered reports whether name has a resolved value.
func (r Resolved) Answered(name string) bool {
	_, ok := r.Values[name]
	return ok
}

// Unanswered returns the subset of names with no resolved value, preserving
// order.
func (r Resolved) Unanswered(names []string) []string {
	var missing []string
	for _, name := range names {
		if !r.Answered(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge copies values into the resolved set, overwriting existing entries.
// Used to fold in interactively collected answers and derived fields.
func (r Resolved) Merge(values map[string]any) {
	for k, v := range values {
		if v == nil {
			continue
		}
		r.Values[k] = v
	}
}

// String returns the value for name as a string, or "" when absent or not a
// string.
func (r Resolved) String(name string) string {
	s, _ := r.Values[name].(string)
	return s
}
