package auth

// Permissions guarding the resource routes.
const (
	PermUserCreate = "user:create"
	PermUserUpdate = "user:update"
	PermUserList   = "user:list"
	PermUserGet    = "user:getbyid"
	PermUserDelete = "user:delete"

	PermUserChangePassword = "user:changepassword"

	PermRoleCreate = "role:create"
	PermRoleUpdate = "role:update"
	PermRoleList   = "role:list"
	PermRoleGet    = "role:getbyid"
	PermRoleDelete = "role:delete"

	PermRoleAddPermissions    = "role:addpermissions"
	PermRoleRemovePermissions = "role:removepermissions"

	PermPermissionCreate = "permission:create"
	PermPermissionUpdate = "permission:update"
	PermPermissionList   = "permission:list"
	PermPermissionGet    = "permission:getbyid"
	PermPermissionDelete = "permission:delete"

	PermCatCreate = "cat:create"
	PermCatUpdate = "cat:update"
	PermCatList   = "cat:list"
	PermCatGet    = "cat:getbyid"
	PermCatDelete = "cat:delete"
)

// BuiltinPermissions is seeded for the ADMIN role.
var BuiltinPermissions = []string{
	PermUserCreate, PermUserUpdate, PermUserList, PermUserGet, PermUserDelete,
	PermRoleCreate, PermRoleUpdate, PermRoleList, PermRoleGet, PermRoleDelete,
	PermPermissionCreate, PermPermissionUpdate, PermPermissionList, PermPermissionGet, PermPermissionDelete,
	PermCatCreate, PermCatUpdate, PermCatList, PermCatGet, PermCatDelete,
	PermRoleAddPermissions, PermRoleRemovePermissions, PermUserChangePassword,
}
