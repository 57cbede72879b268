// Package governance provides the rule overlay applied on top of every
// installation. The default bundle is compiled into the binary; a local
// directory with the same layout can replace it.
package governance
