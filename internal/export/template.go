package export

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"astrocat/internal/model"
)

// DefaultTemplate reproduces the source file's base name.
const DefaultTemplate = "${name}${ext}"

// templateVars lists the variables Expand recognizes. Unknown
// variables are an error rather than expanding to nothing.
var templateVars = map[string]bool{
	"name": true, "ext": true, "type": true, "exposure": true,
	"gain": true, "filter": true, "camera": true, "object": true,
	"date": true, "binning": true, "temp": true,
}

// Expand renders an export path template for a file. Absent metadata
// expands to the empty string. Values are sanitized so a template
// cannot escape the destination through metadata content.
func Expand(template string, f *model.File) (string, error) {
	var badVar string
	expanded := os.Expand(template, func(name string) string {
		if !templateVars[name] {
			if badVar == "" {
				badVar = name
			}
			return ""
		}
		return sanitize(varValue(name, f))
	})
	if badVar != "" {
		return "", fmt.Errorf("unknown template variable: %s", badVar)
	}

	expanded = path.Clean(strings.ReplaceAll(expanded, "\\", "/"))
	if expanded == "." || expanded == "/" || strings.HasPrefix(expanded, "../") || path.IsAbs(expanded) {
		return "", fmt.Errorf("template expands outside destination: %q", expanded)
	}
	return expanded, nil
}

func varValue(name string, f *model.File) string {
	switch name {
	case "name":
		return baseName(f.RelPath)
	case "ext":
		return extension(f.RelPath)
	case "type":
		return string(f.FrameType)
	case "exposure":
		if f.Exposure == nil {
			return ""
		}
		return trimFloat(*f.Exposure)
	case "gain":
		if f.Gain == nil {
			return ""
		}
		return strconv.FormatInt(*f.Gain, 10)
	case "filter":
		return strDeref(f.Filter)
	case "camera":
		return strDeref(f.Camera)
	case "object":
		return strDeref(f.Object)
	case "date":
		if f.DateObs == nil {
			return ""
		}
		return f.DateObs.UTC().Format("2006-01-02")
	case "binning":
		if f.Binning == nil {
			return ""
		}
		return strconv.FormatInt(*f.Binning, 10)
	case "temp":
		if f.SetTemp == nil {
			return ""
		}
		return trimFloat(*f.SetTemp)
	}
	return ""
}

// baseName returns the file name without its image extension or any
// trailing compression extension.
func baseName(relPath string) string {
	name := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	name = strings.TrimSuffix(name, extension(name))
	return name
}

// extension returns the image extension including any compression
// suffix, e.g. ".fits.gz".
func extension(p string) string {
	ext := path.Ext(p)
	switch strings.ToLower(ext) {
	case ".gz", ".bz2", ".xz":
		inner := path.Ext(strings.TrimSuffix(p, ext))
		return inner + ext
	default:
		return ext
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func strDeref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// sanitize strips characters that would act as path syntax when a
// metadata value is spliced into an export path.
func sanitize(v string) string {
	v = strings.ReplaceAll(v, "/", "_")
	v = strings.ReplaceAll(v, "\\", "_")
	v = strings.ReplaceAll(v, "..", "_")
	return strings.TrimSpace(v)
}
