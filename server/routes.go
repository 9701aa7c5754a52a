package server

const (
	RouteRegister     = "/api/users/register"
	RouteLogin        = "/api/users/login"
	RouteLogout       = "/api/users/logout"
	RouteRefreshToken = "/api/users/refresh-token"
	RouteMe           = "/api/users/me"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware()...))

	// Protected routes go through the access guard after the common chain.
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), append(s.APIMiddleware(), s.RequireAuth())...))

	// CORS preflight; the CORS middleware short-circuits OPTIONS itself.
	s.RegisterRouteFunc("OPTIONS /api/users/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
