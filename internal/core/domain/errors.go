package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrMissingDependency is returned when a task references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrMissingProducer is returned when a task consumes an artifact no task produces.
	ErrMissingProducer = zerr.New("no task produces artifact")

	// ErrDuplicateProducer is returned when two tasks produce the same artifact.
	ErrDuplicateProducer = zerr.New("artifact produced by more than one task")

	// ErrTaskPlannedTwice is returned when a plan schedules a task in two stages.
	ErrTaskPlannedTwice = zerr.New("task planned in more than one stage")

	// ErrArtifactOrdering is returned when a plan runs a consumer before or alongside its producer.
	ErrArtifactOrdering = zerr.New("artifact consumed before it is produced")

	// ErrInvalidPathTable is returned when a path table entry is incomplete.
	ErrInvalidPathTable = zerr.New("invalid path table")

	// ErrUnknownCategory is returned for a category name outside the known set.
	ErrUnknownCategory = zerr.New("unknown category")

	// ErrDuplicateRoute is returned when a category is routed twice.
	ErrDuplicateRoute = zerr.New("duplicate route")

	// ErrMissingRoute is returned when a category has no route.
	ErrMissingRoute = zerr.New("missing route")

	// ErrConfigReadFailed is returned when the project configuration file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read configuration file")

	// ErrConfigParseFailed is returned when the project configuration file is not valid YAML.
	ErrConfigParseFailed = zerr.New("failed to parse configuration file")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrInvalidPolicy is returned for an unknown failure policy name.
	ErrInvalidPolicy = zerr.New("invalid failure policy")

	// ErrNoTransformer is returned when no transformer is registered for a category.
	ErrNoTransformer = zerr.New("no transformer for category")

	// ErrOutputPathOutsideRoot is returned when a task tries to write outside the project root.
	ErrOutputPathOutsideRoot = zerr.New("output path is outside project root")

	// ErrTaskExecutionFailed is returned when a task fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrDependencyFailed marks tasks skipped because a dependency failed.
	ErrDependencyFailed = zerr.New("dependency failed")

	// ErrStageFailed marks tasks skipped because an earlier stage failed under the halt policy.
	ErrStageFailed = zerr.New("earlier stage failed")

	// ErrBuildFailed is returned by finite commands when failures must be reflected in the exit code.
	ErrBuildFailed = zerr.New("build failed")

	// ErrRefuseCleanRoot is returned when the destination root resolves to the project root.
	ErrRefuseCleanRoot = zerr.New("refusing to remove project root")

	// ErrSpriteRetinaMismatch is returned when retina icons do not pair with normal icons.
	ErrSpriteRetinaMismatch = zerr.New("retina sprite has no matching normal sprite")
)
