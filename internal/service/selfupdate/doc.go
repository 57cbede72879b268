// Package selfupdate checks whether a newer agkit release is published and
// offers to run the upgrade command.
//
// The check never blocks provisioning: network, decoding and prompt failures
// are logged at debug level and the command continues.
package selfupdate
