/*
Package state defines the navigation hierarchy: named states with URL
patterns, parameter declarations and resolve declarations, registered
into an immutable-after-freeze Tree.

A state's position in the tree follows from its name: "app.users.detail"
is a child of "app.users" unless an explicit Parent overrides the dotted
derivation. The full root-to-leaf chain of a state never changes once it
is registered.
*/
package state
