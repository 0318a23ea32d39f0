// Package chatbot answers counter commands in enrolled broadcasters' Twitch
// chats over a single IRC connection.
//
// It provides two pieces:
//   - Responder: resolves "!<command>" messages against the live chat command
//     overrides, profile defaults, and the active game's custom counter
//     definitions, and produces a reply (or silence).
//   - StartBot: connects to Twitch IRC as the configured bot account, joins
//     every enrolled channel, keeps membership in sync as users enroll or
//     leave, and relays messages through the Responder.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes (TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN).
// Missing credentials disable the bot rather than failing startup.
package chatbot
