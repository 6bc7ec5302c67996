// Package domain defines the core business entities of the health metrics
// service: users and the two measurement variants (blood glucose and blood
// pressure readings), together with their validation rules.
//
// Validation here is pure. Constructors and Validate methods inspect field
// constraints and return typed errors; they never touch the network, the
// database, or the broker.
package domain
