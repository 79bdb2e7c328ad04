package rbac

// Default policy. Students act only on their own enrollments and
// attempts; admins hold the configuration knobs.
var RolePermissions = map[string][]string{
	"student": {
		"test:view",
		"progress:view",
		"attempt:submit",
		"attempt:view-own",
		"result:view-own",
	},
	"proctor": {
		"violation:record",
	},
	"admin": {
		"*", // everything
	},
}
