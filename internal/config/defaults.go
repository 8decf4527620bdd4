package config

const (
	defaultStateDir          = "~/.local/share/meshbatch"
	defaultLogDir            = "~/.local/share/meshbatch/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultLogMaxSizeMB      = 20
	defaultScenePolicy       = PolicyOccurred
	defaultSceneInputExt     = ".obj"
	defaultSceneOutputPrefix = "out"
	defaultSceneOutputExt    = ".xml"
	defaultSceneIndexWidth   = 6
	defaultMaxDenseScenes    = 100000
	defaultSceneVersion      = "0.4.4"
	defaultIntegrator        = "photonmapper"
	defaultIntegratorParam   = "causticPhotons"
	defaultIntegratorValue   = 400000
	defaultShapeType         = "obj"
	defaultBSDFType          = "dielectric"
	defaultWaterIOR          = 1.333
	defaultSceneSegment      = 1
	defaultDebrisSubSegment  = 1
	defaultDebrisSceneSeg    = 2
	defaultBlenderBinary     = "blender"
	defaultConvertScript     = "_convertMeshes.py"
	defaultConvertTimeout    = 3600
	defaultSolverBinary      = "bmbiesolve"
	defaultSolverJobs        = 1
	defaultSolverTimeout     = 7200
	defaultSolverOutPrefix   = "out"
	defaultSolverOutExt      = ".dat"
)

// Scene emission policies.
const (
	// PolicyOccurred emits documents only for scene indices that occurred.
	PolicyOccurred = "occurred"
	// PolicyDense emits documents for every index from 0 to the largest seen.
	PolicyDense = "dense"
)

var (
	defaultInterfaceTokens = []string{"smoothedInterface", "interface"}
	defaultSolidTokens     = []string{"bubbles", "solid"}
	defaultDebrisTokens    = []string{"garbage", "debris"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Scenes: Scenes{
			Policy:             defaultScenePolicy,
			InputExtension:     defaultSceneInputExt,
			OutputPrefix:       defaultSceneOutputPrefix,
			OutputExtension:    defaultSceneOutputExt,
			IndexWidth:         defaultSceneIndexWidth,
			MaxDenseScenes:     defaultMaxDenseScenes,
			InterfaceTokens:    append([]string(nil), defaultInterfaceTokens...),
			SolidTokens:        append([]string(nil), defaultSolidTokens...),
			DebrisTokens:       append([]string(nil), defaultDebrisTokens...),
			SceneSegment:       defaultSceneSegment,
			DebrisSubSegment:   defaultDebrisSubSegment,
			DebrisSceneSegment: defaultDebrisSceneSeg,
		},
		Template: Template{
			Version:         defaultSceneVersion,
			Integrator:      defaultIntegrator,
			IntegratorParam: defaultIntegratorParam,
			IntegratorValue: defaultIntegratorValue,
			ShapeType:       defaultShapeType,
			BSDFType:        defaultBSDFType,
			InterfaceIOR:    defaultWaterIOR,
			SolidIOR:        defaultWaterIOR,
			DebrisIOR:       defaultWaterIOR,
		},
		Convert: Convert{
			BlenderBinary: defaultBlenderBinary,
			ScriptName:    defaultConvertScript,
			Timeout:       defaultConvertTimeout,
		},
		Solver: Solver{
			Binary:          defaultSolverBinary,
			Jobs:            defaultSolverJobs,
			Timeout:         defaultSolverTimeout,
			OutputPrefix:    defaultSolverOutPrefix,
			OutputExtension: defaultSolverOutExt,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
		},
	}
}
