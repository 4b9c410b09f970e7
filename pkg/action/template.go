package action

import (
	"fmt"
	"strconv"
	"strings"
)

type templatePart interface {
	append(dst *strings.Builder, srcKey string) error
}

type literalPart string

type filenamePart struct{}

type keyPart struct{}

type dirPart struct{ idx int }

func (p literalPart) append(dst *strings.Builder, _ string) error {
	dst.WriteString(string(p))
	return nil
}

func (p filenamePart) append(dst *strings.Builder, srcKey string) error {
	_, filename := splitKey(srcKey)
	dst.WriteString(filename)
	return nil
}

func (p keyPart) append(dst *strings.Builder, srcKey string) error {
	dst.WriteString(srcKey)
	return nil
}

func (p dirPart) append(dst *strings.Builder, srcKey string) error {
	dirs, _ := splitKey(srcKey)
	if p.idx < 0 || p.idx >= len(dirs) {
		return fmt.Errorf("dir[%d] out of range for %q", p.idx, srcKey)
	}
	dst.WriteString(dirs[p.idx])
	return nil
}

// KeyTemplate maps a source key to a destination key.
//
// Supported placeholders:
//   - {key}: full source key
//   - {filename}: final path segment
//   - {dir[n]}: nth directory component (0-based)
//
// The empty template keeps the source key unchanged.
type KeyTemplate struct {
	raw   string
	parts []templatePart
}

// CompileKeyTemplate parses a template string.
func CompileKeyTemplate(template string) (*KeyTemplate, error) {
	if template == "" {
		return &KeyTemplate{}, nil
	}

	var parts []templatePart
	s := template
	for len(s) > 0 {
		open := strings.IndexByte(s, '{')
		if open == -1 {
			parts = append(parts, literalPart(s))
			break
		}
		if open > 0 {
			parts = append(parts, literalPart(s[:open]))
			s = s[open:]
		}

		closeIdx := strings.IndexByte(s, '}')
		if closeIdx == -1 {
			return nil, fmt.Errorf("unclosed placeholder in %q", template)
		}

		placeholder := s[1:closeIdx]
		s = s[closeIdx+1:]

		part, err := parsePlaceholder(placeholder)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}

	return &KeyTemplate{raw: template, parts: parts}, nil
}

// String returns the template source.
func (t *KeyTemplate) String() string {
	if t == nil {
		return ""
	}
	return t.raw
}

// Apply renders the destination key for sourceKey.
// A nil or empty template returns sourceKey unchanged.
func (t *KeyTemplate) Apply(sourceKey string) (string, error) {
	if t == nil || len(t.parts) == 0 {
		return sourceKey, nil
	}

	var b strings.Builder
	for _, part := range t.parts {
		if err := part.append(&b, sourceKey); err != nil {
			return "", err
		}
	}

	out := b.String()
	out = strings.ReplaceAll(out, "//", "/")
	out = strings.TrimPrefix(out, "/")
	if out == "" {
		return "", fmt.Errorf("key template produced empty key for %q", sourceKey)
	}
	return out, nil
}

func parsePlaceholder(p string) (templatePart, error) {
	switch {
	case p == "filename":
		return filenamePart{}, nil
	case p == "key":
		return keyPart{}, nil
	case strings.HasPrefix(p, "dir[") && strings.HasSuffix(p, "]"):
		nStr := strings.TrimSuffix(strings.TrimPrefix(p, "dir["), "]")
		idx, err := strconv.Atoi(nStr)
		if err != nil {
			return nil, fmt.Errorf("invalid dir index %q", nStr)
		}
		return dirPart{idx: idx}, nil
	default:
		return nil, fmt.Errorf("unsupported placeholder {%s}", p)
	}
}

func splitKey(key string) (dirs []string, filename string) {
	trimmed := strings.TrimSuffix(key, "/")
	if trimmed == "" {
		return nil, ""
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 1 {
		return nil, parts[0]
	}
	return parts[:len(parts)-1], parts[len(parts)-1]
}
