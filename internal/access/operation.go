package access

// Operation names a protected action.
type Operation string

const (
	OpRegisterOwner Operation = "auth.register_owner"

	OpTenantCreate Operation = "tenant.create"
	OpTenantList   Operation = "tenant.list"
	OpTenantGet    Operation = "tenant.get"
	OpTenantUpdate Operation = "tenant.update"
	OpTenantDelete Operation = "tenant.delete"
	OpDashboard    Operation = "dashboard.view"

	OpUserCreate Operation = "user.create"
	OpUserList   Operation = "user.list"
	OpUserGet    Operation = "user.get"
	OpUserUpdate Operation = "user.update"
	OpUserDelete Operation = "user.delete"

	OpClientCreate Operation = "client.create"
	OpClientList   Operation = "client.list"
	OpClientGet    Operation = "client.get"
	OpClientUpdate Operation = "client.update"
	OpClientDelete Operation = "client.delete"

	OpActivityCreate Operation = "activity.create"
	OpActivityList   Operation = "activity.list"
	OpActivityGet    Operation = "activity.get"
	OpActivityUpdate Operation = "activity.update"
	OpActivityDelete Operation = "activity.delete"

	OpAnalyticsView   Operation = "analytics.view"
	OpAnalyticsExport Operation = "analytics.export"

	OpSubscriptionCheckout Operation = "subscription.checkout"
)

// allowList is the only place permissions are declared.
var allowList = map[Operation][]Role{
	OpRegisterOwner: {RoleSuperAdmin},

	OpTenantCreate: {RoleSuperAdmin},
	OpTenantList:   {RoleSuperAdmin},
	OpTenantGet:    {RoleSuperAdmin},
	OpTenantUpdate: {RoleSuperAdmin},
	OpTenantDelete: {RoleSuperAdmin},
	OpDashboard:    {RoleSuperAdmin},

	OpUserCreate: {RoleSuperAdmin, RoleOwner, RoleAdmin},
	OpUserList:   {RoleOwner, RoleAdmin},
	OpUserGet:    {RoleOwner, RoleAdmin},
	OpUserUpdate: {RoleSuperAdmin, RoleOwner, RoleAdmin},
	OpUserDelete: {RoleOwner},

	OpClientCreate: {RoleSuperAdmin, RoleOwner, RoleAdmin},
	OpClientList:   {RoleSuperAdmin, RoleOwner, RoleAdmin, RoleStaff},
	OpClientGet:    {RoleSuperAdmin, RoleOwner, RoleAdmin, RoleStaff},
	OpClientUpdate: {RoleOwner, RoleAdmin},
	OpClientDelete: {RoleOwner, RoleAdmin},

	OpActivityCreate: {RoleOwner, RoleAdmin},
	OpActivityList:   {RoleOwner, RoleAdmin, RoleStaff},
	OpActivityGet:    {RoleOwner, RoleAdmin, RoleStaff},
	OpActivityUpdate: {RoleAdmin},
	OpActivityDelete: {RoleAdmin},

	OpAnalyticsView:   {RoleOwner, RoleAdmin},
	OpAnalyticsExport: {RoleOwner, RoleAdmin},

	OpSubscriptionCheckout: {RoleOwner},
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(op Operation, role Role) bool {
	for _, r := range allowList[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Operations returns every declared operation.
func Operations() []Operation {
	ops := make([]Operation, 0, len(allowList))
	for op := range allowList {
		ops = append(ops, op)
	}
	return ops
}
