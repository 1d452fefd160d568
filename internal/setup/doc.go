// Package setup drives the multi-round driver setup wizard.
//
// The hub starts a setup with setup_driver and answers each form or
// confirmation screen with set_driver_user_data. The driver's Handler is
// invoked for every step and returns an Action telling the flow what to
// show next; the flow translates that into driver_setup_change events.
//
// The wizard state is explicit:
//
//	Idle ──setup_driver──▶ Running ──input/confirmation──▶ AwaitingUserData
//	                          │  ▲                               │
//	                          │  └──────set_driver_user_data─────┘
//	                          └──complete/error──▶ Complete | Failed
//
// Only one conversation is supported because the protocol carries no setup
// token. A setup_driver arriving while a step is Running is rejected with
// ErrSetupBusy, and user data arriving outside AwaitingUserData is rejected
// with ErrNoSetupInProgress, instead of interleaving two conversations.
//
// A handler error or panic moves the flow to Failed and sends a terminal
// STOP/ERROR event so the hub does not have to wait for its own timeout.
package setup
