package handler

import "html/template"

var resetFormTmpl = template.Must(template.New("reset-form").Parse(`<html>
  <head>
    <title>Password Reset</title>
    <style>
      body { font-family: Arial, sans-serif; }
      form { max-width: 300px; margin: 0 auto; }
      input {
        display: block;
        width: 100%;
        margin-bottom: 10px;
        padding: 8px;
        border: 1px solid #ccc;
      }
      button {
        display: block;
        width: 100%;
        padding: 10px;
        background-color: #007bff;
        color: #fff;
        border: none;
        cursor: pointer;
      }
    </style>
  </head>
  <body>
    <h1>Password Reset</h1>
    <p>Please enter your new password below:</p>
    <form action="/reset-password" method="post">
      <input type="hidden" name="token" value="{{.Token}}">
      <input type="password" name="password" placeholder="New Password" required>
      <input type="password" name="confirmPassword" placeholder="Confirm Password" required>
      <button type="submit">Reset Password</button>
    </form>
  </body>
</html>
`))
