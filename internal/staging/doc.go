// Package staging inspects and prunes the shared working directory where
// intermediate conversion outputs live between stages.
//
// Intermediates are normally removed as soon as a workflow completes; what
// remains after a crash or an interrupted run is cleaned here by age. Hidden
// entries, including the runner lock file, are never touched.
package staging
