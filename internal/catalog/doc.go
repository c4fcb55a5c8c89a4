// Package catalog is the broker's name resolver. It holds service manifests
// read from a directory of YAML or JSON files:
//
//	name: storage
//	displayName: Storage
//	package: builtins
//	options:
//	  instanceSharing: singleton
//	capabilities:
//	  provided:
//	    read: [storage.Reader]
//	  required:
//	    "*":
//	      classes: [app]
//
// Resolve turns a name into a ResolveResult: the hosting service, the
// default instance qualifier, the capability spec and the sharing policy.
// The broker resolves through a Resolver obtained per user; the catalog's
// resolvers answer on a background goroutine under a deadline.
//
// Watcher reloads changed manifests in place. Running instances keep the
// spec they were created with.
package catalog
