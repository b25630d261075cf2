package rbac

// Simple default policy. Regular users take tests and read their own
// history; admins author everything.
var RolePermissions = map[string][]string{
	"user": {
		"test:view",
		"quiz:study",
		"quiz:sim",
		"history:view-own",
	},
	"admin": {
		"*", // everything
	},
}
