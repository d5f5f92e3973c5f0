/*
Package schoolsdk provides a client SDK for the NeoSchool administration backend.

# Overview

Every call to the backend carries a short-lived access token. When the backend
rejects a token with 401 the SDK obtains a new one using the refresh token and
replays the original request exactly once. Concurrent requests that fail at the
same time share one refresh; they all resume with the new token, or all fail
together if the refresh is refused.

The package is organized around four pieces:

  - credstore.Store: holds the credential record in a session or durable tier
  - Dispatcher: attaches the token, sends requests, recovers from a 401
  - Coordinator: runs at most one refresh at a time and fans the result out
  - Monitor: logs the user out after inactivity and refreshes on a cadence

An SDKClient wires them together:

	store := credstore.New(credstore.NewMemoryTier(), durable)
	client := schoolsdk.NewSDKClient("http://localhost:8080/api", store)

	user, err := client.Login(ctx, "admin", "secret", true)

	students, err := client.Collection(schoolsdk.Students).List(ctx, nil)

# Session end

The SDK never navigates anywhere. When the session ends, whether by Logout,
a failed refresh, idle expiry or server-side revocation, the credential record
is cleared and every OnSessionEnded subscriber is told why:

	unsubscribe := client.OnSessionEnded(func(ev schoolsdk.SessionEnd) {
		fmt.Println("signed out:", ev.Reason)
	})
	defer unsubscribe()

Requests that waited on a failed refresh return an error wrapping
ErrSessionExpired:

	_, err := client.Collection(schoolsdk.Exams).List(ctx, nil)
	if errors.Is(err, schoolsdk.ErrSessionExpired) {
		// prompt for credentials
	}

# Session monitor

A Monitor is started once a record exists. Touch it on every user action:

	mon := client.NewMonitor(schoolsdk.MonitorConfig{IdleTimeout: 30 * time.Minute})
	mon.Start(ctx)
	defer mon.Stop()

	for line := range input {
		mon.Touch()
		handle(line)
	}

# Errors

Non-2xx responses become *APIError. Status classes can be matched with
errors.Is against ErrUnauthorized, ErrForbidden and ErrNotFound.
*/
package schoolsdk
