// Package receipt implements persistence for the installation receipt.
//
// The FileRepository stores and loads the receipt as YAML next to the
// installation it describes and exposes a Repository interface that the
// provisioning service depends on.
package receipt
