// Package specs implements the first pipeline stage: extracting clip
// annotation specs from source documents. A descriptor becomes a spec only
// when the availability index says its audio exists, either under the bare
// video id or under the composite clip name. Eligible descriptors are
// written verbatim as JSON files named by their composite key, so re-running
// the stage regenerates identical files.
package specs
