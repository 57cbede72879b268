// Package kit contains the data model shared by the provisioning pipeline:
// remote sources and their mappings, the installation layout, run stages and
// the install receipt.
package kit
