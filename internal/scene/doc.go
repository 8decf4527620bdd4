// Package scene turns a flat directory of per-frame mesh files into renderer
// scene documents.
//
// Mesh file names follow a small positional grammar: the stem is split on "_",
// the first segment names the role (interface, solid, or debris) and a role
// specific segment carries the scene index. Debris files carry an extra sub
// index ahead of the scene index, so the two layouts differ by one position.
// Grammar makes that layout explicit and reports malformed names as
// ParseFailure values instead of guessing.
//
// A Grouper collects parsed references into one SceneGroup per scene index,
// a Renderer writes each group as a fixed-format XML document, and Builder
// drives the whole pass over a directory. Files whose first segment matches no
// role are skipped silently so unrelated files can share the directory.
package scene
