// Package ports declares the boundaries of the application core. Inbound
// adapters call the UserService and TaskService ports; the core calls out
// through Store, EventPublisher and the health interfaces, which outbound
// adapters implement.
package ports
