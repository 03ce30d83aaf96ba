// Package pipeline provides a framework for executing detection steps in
// sequence.
//
// A detection run passes through several stages: loading issue files,
// building the similarity index, clustering duplicates and proposing merges.
// Each stage is implemented as a Step that receives the current model.Run
// and fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It provides consistent error handling and logging across steps
// 2. It supports cancellation via context between steps
// 3. Optional stages (suggestions) are added or left out in one place
package pipeline
