package mcpulse

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// NewServerGrid creates one [Server] per combination of dimension values,
// rendering each address from a template.
//
// The address template uses Go's text/template syntax and must render to
// "host" or "host:port". Missing template keys cause an error.
//
// Each server is named "Base Name (val1/val2)", with values ordered by
// sorted dimension key, and labelled with its dimension values. Static
// labels from [WithGridLabels] win on collision.
//
// Example:
//
//	servers, err := mcpulse.NewServerGrid("Shard", mcpulse.ProtocolJava,
//	    mcpulse.WithAddressTemplate("shard-{{.n}}.example.com"),
//	    mcpulse.WithDimensions(map[string][]string{
//	        "n": {"1", "2", "3"},
//	    }),
//	)
//	// Returns 3 servers, usable with WithServers(servers...)
func NewServerGrid(baseName string, p Protocol, opts ...GridOption) ([]Server, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}
	if !p.Valid() {
		return nil, fmt.Errorf("unknown protocol %q", p)
	}

	cfg := &gridConfig{staticLabels: make(map[string]string)}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.addressTemplate == "" {
		return nil, errors.New("address template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	tmpl, err := template.New("address").Option("missingkey=error").Parse(cfg.addressTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid address template: %w", err)
	}

	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	var targetOpts []TargetOption
	if cfg.timeout > 0 {
		targetOpts = append(targetOpts, WithTimeout(cfg.timeout))
	}

	servers := make([]Server, 0, len(combinations))
	for _, combo := range combinations {
		address, err := executeTemplate(tmpl, combo)
		if err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}

		name := formatGridName(baseName, combo)

		t, err := ParseTarget(p, address, targetOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create server '%s': %w", name, err)
		}

		labels := mergeMaps(combo, cfg.staticLabels)
		srvOpts := []ServerOption{WithLabels(flattenMap(labels)...)}
		if cfg.interval > 0 {
			srvOpts = append(srvOpts, WithInterval(cfg.interval))
		}

		srv, err := NewServer(name, t, srvOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create server '%s': %w", name, err)
		}
		servers = append(servers, srv)
	}

	return servers, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are sorted alphabetically for deterministic output.
// Values maintain their original slice order.
//
// Example:
//
//	Input:  {"x": ["a","b"], "y": ["1","2"]}
//	Output: [{"x":"a","y":"1"}, {"x":"a","y":"2"}, {"x":"b","y":"1"}, {"x":"b","y":"2"}]
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
	}

	total := 1
	for _, k := range keys {
		total *= len(dims[k])
	}

	result := make([]map[string]string, 0, total)

	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// increment indices (rightmost first)
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

// executeTemplate renders the template with the given data.
func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatGridName creates a name in the format "Base (v1/v2)".
func formatGridName(baseName string, combo map[string]string) string {
	keys := make([]string, 0, len(combo))
	for k := range combo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = combo[k]
	}
	return fmt.Sprintf("%s (%s)", baseName, strings.Join(parts, "/"))
}

// mergeMaps merges multiple maps, with later maps taking precedence.
func mergeMaps(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// flattenMap converts a map to sorted key-value pairs for variadic options.
func flattenMap(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(m)*2)
	for _, k := range keys {
		result = append(result, k, m[k])
	}
	return result
}
