package extraction

import (
	"embed"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaResult     = "result"
	schemaStandalone = "standalone"
	schemaAnalysis   = "analysis"
)

var compiled = sync.OnceValues(func() (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema)
	for _, name := range []string{schemaResult, schemaStandalone, schemaAnalysis} {
		data, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, err
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
})

// check validates doc against the named schema and returns every problem.
func check(name string, doc []byte) ([]FieldError, error) {
	schemas, err := compiled()
	if err != nil {
		return nil, err
	}

	result, err := schemas[name].Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}

	problems := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		problems = append(problems, fieldError(re))
	}
	return problems, nil
}

// rootField is what gojsonschema reports as the field of the document itself.
const rootField = "(root)"

var itemPath = regexp.MustCompile(`^achievements\.(\d+)(?:\.(text|tags)(?:\.\d+)?)?$`)

// fieldError words schema failures the way operators know them from the
// review tooling.
func fieldError(re gojsonschema.ResultError) FieldError {
	path := re.Field()
	required := re.Type() == "required"
	if required {
		if prop, ok := re.Details()["property"].(string); ok {
			if path == rootField {
				path = prop
			} else {
				path += "." + prop
			}
		}
	}

	switch {
	case path == "achievements" && required:
		return FieldError{Field: path, Message: "Missing 'achievements' array"}
	case path == "achievements":
		return FieldError{Field: path, Message: "'achievements' must be an array"}
	case path == "position_metadata" && required:
		return FieldError{Field: path, Message: "Missing 'position_metadata'"}
	case strings.HasPrefix(path, "position_metadata.") && required:
		return FieldError{Field: path, Message: "Missing " + path}
	}

	if m := itemPath.FindStringSubmatch(path); m != nil {
		field := "achievements." + m[1]
		switch m[2] {
		case "text":
			return FieldError{Field: field + ".text", Message: fmt.Sprintf("Achievement %s: Missing or empty 'text'", m[1])}
		case "tags":
			return FieldError{Field: field + ".tags", Message: fmt.Sprintf("Achievement %s: Missing or empty 'tags' array", m[1])}
		default:
			return FieldError{Field: field, Message: fmt.Sprintf("Achievement %s: must be an object", m[1])}
		}
	}

	return FieldError{Field: path, Message: path + ": " + re.Description()}
}

// normalize drops repeated problems and orders them by path, with array
// indexes compared as numbers.
func normalize(problems []FieldError) []FieldError {
	seen := make(map[FieldError]struct{}, len(problems))
	out := make([]FieldError, 0, len(problems))
	for _, p := range problems {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b FieldError) int {
		return comparePaths(a.Field, b.Field)
	})
	return out
}

func comparePaths(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aerr := strconv.Atoi(as[i])
		bi, berr := strconv.Atoi(bs[i])
		if aerr == nil && berr == nil {
			return ai - bi
		}
		return strings.Compare(as[i], bs[i])
	}
	return len(as) - len(bs)
}
