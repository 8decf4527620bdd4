package meshconv

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"unicode/utf8"
)

// Script renders the Blender Python program converting files (base names
// inside inputDir) into outputDir.
func Script(inputDir, outputDir string, files []string, direction Direction) []byte {
	var buf bytes.Buffer
	buf.WriteString("import os\n\nimport bpy\n\n")
	fmt.Fprintf(&buf, "# %s: %d meshes\n", direction, len(files))
	buf.WriteString("PAIRS = [\n")
	for _, name := range files {
		source := filepath.Join(inputDir, name)
		target := filepath.Join(outputDir, TargetName(name, direction))
		fmt.Fprintf(&buf, "    (%s, %s),\n", pyString(source), pyString(target))
	}
	buf.WriteString("]\n\n")
	buf.WriteString("for source, target in PAIRS:\n")
	buf.WriteString("    # Clear the startup scene (default cube, camera, light).\n")
	buf.WriteString("    bpy.ops.object.select_all(action=\"SELECT\")\n")
	buf.WriteString("    bpy.ops.object.delete()\n")
	fmt.Fprintf(&buf, "    %s(filepath=source)\n", direction.importOperator())
	fmt.Fprintf(&buf, "    %s(filepath=target)\n", direction.exportOperator())
	// %r keeps surrogate-escaped names printable on a UTF-8 stdout.
	buf.WriteString("    print(\"converted %r -> %r\" % (source, target))\n")
	return buf.Bytes()
}

// pyString quotes s as a Python string literal. Go's escape sequences are a
// subset of Python's. Paths that are not valid UTF-8 become bytes literals
// decoded with os.fsdecode, which maps them back to the same file name.
func pyString(s string) string {
	if utf8.ValidString(s) {
		return strconv.Quote(s)
	}
	var b bytes.Buffer
	b.WriteString(`os.fsdecode(b"`)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' || c == '"':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	b.WriteString(`")`)
	return b.String()
}
