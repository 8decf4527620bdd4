// Package meshconv drives Blender to convert batches of meshes between STL
// and OBJ.
//
// Conversion happens in two steps. Prepare selects the source meshes,
// optionally restricted to a frame range, and writes a Blender Python script
// that imports each one and exports it with the target extension. Run starts
// Blender in background mode on that script. The script can also be run by
// hand with `blender -b --python <script>`.
package meshconv
