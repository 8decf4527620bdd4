package meshconv

import (
	"fmt"
	"strings"
)

// Direction selects the source and target mesh formats.
type Direction string

const (
	STLToOBJ Direction = "stl2obj"
	OBJToSTL Direction = "obj2stl"
)

// ParseDirection accepts "stl2obj" or "obj2stl"; an empty value means stl2obj.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(value))) {
	case "", STLToOBJ:
		return STLToOBJ, nil
	case OBJToSTL:
		return OBJToSTL, nil
	}
	return "", fmt.Errorf("unknown conversion direction %q (want %s or %s)", value, STLToOBJ, OBJToSTL)
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == OBJToSTL {
		return STLToOBJ
	}
	return OBJToSTL
}

// SourceExt is the extension of meshes read by the conversion.
func (d Direction) SourceExt() string {
	if d == OBJToSTL {
		return ".obj"
	}
	return ".stl"
}

// TargetExt is the extension of meshes written by the conversion.
func (d Direction) TargetExt() string {
	if d == OBJToSTL {
		return ".stl"
	}
	return ".obj"
}

func (d Direction) importOperator() string {
	if d == OBJToSTL {
		return "bpy.ops.import_scene.obj"
	}
	return "bpy.ops.import_mesh.stl"
}

func (d Direction) exportOperator() string {
	if d == OBJToSTL {
		return "bpy.ops.export_mesh.stl"
	}
	return "bpy.ops.export_scene.obj"
}
