// Package provision drives a provisioning run: it prepares a private
// workspace, downloads and extracts every configured source, merges the
// mapped directories into the installation, applies the governance overlay
// and runs the finalizers.
//
// Every run moves through the stages defined in the kit package and always
// removes its workspace before returning, whatever the outcome.
package provision
